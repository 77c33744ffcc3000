package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionEngine recognises page images with Google Cloud Vision document text detection.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionEngine creates a client from GOOGLE_CREDENTIALS (inline JSON),
// GOOGLE_APPLICATION_CREDENTIALS (file) or application default credentials.
func NewVisionEngine(ctx context.Context) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, NewOCRError(op, ErrEngineUnavailable, err.Error())
	}

	return &VisionEngine{client: client}, nil
}

func (v *VisionEngine) Name() string { return "vision" }

func (v *VisionEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	const op = "vision"

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", NewOCRError(op, err, "reading page image")
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", NewOCRError(op, err, "Vision API call failed")
	}
	if len(resp.Responses) == 0 {
		return "", NewOCRError(op, ErrEmptyText, "no response from Vision API")
	}

	page := resp.Responses[0]
	if page.Error != nil {
		return "", NewOCRError(op, fmt.Errorf("vision: %s", page.Error.Message), imagePath)
	}
	if page.FullTextAnnotation == nil {
		return "", nil
	}

	return page.FullTextAnnotation.Text, nil
}

func (v *VisionEngine) Close() error {
	return v.client.Close()
}
