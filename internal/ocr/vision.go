package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// MaxImageBytes is the Vision limit for inline image content.
const MaxImageBytes = 20 * 1024 * 1024

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// Vision uses Google Cloud Vision document text detection.
type Vision struct {
	annotate annotateFunc
	closer   func() error
}

// NewVision creates a client from inline JSON credentials, a credentials
// file, or application default credentials, in that order.
func NewVision(ctx context.Context, credJSON, credFile string) (*Vision, error) {
	const op = "NewVision"

	var (
		client *vision.ImageAnnotatorClient
		err    error
	)
	switch {
	case credJSON != "":
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, wrap(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	case credFile != "":
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, wrap(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	default:
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, wrap(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &Vision{
		annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return client.BatchAnnotateImages(ctx, req)
		},
		closer: client.Close,
	}, nil
}

func (v *Vision) Name() string    { return "vision" }
func (v *Vision) Available() bool { return v.annotate != nil }

func (v *Vision) Recognize(ctx context.Context, imagePath string) (string, error) {
	const op = "vision"

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", wrap(op, err, "failed to read image")
	}
	if len(data) > MaxImageBytes {
		return "", wrap(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:    &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			},
		},
	}
	resp, err := v.annotate(ctx, req)
	if err != nil {
		return "", wrap(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.GetResponses()) == 0 {
		return "", wrap(op, ErrOCRFailed, "no response from Vision API")
	}
	r := resp.GetResponses()[0]
	if r.GetError() != nil {
		return "", wrap(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", r.GetError().GetMessage()))
	}
	// No annotation means the image holds no text, which is not a failure.
	return r.GetFullTextAnnotation().GetText(), nil
}

// Close closes the underlying Vision client.
func (v *Vision) Close() error {
	if v.closer != nil {
		return v.closer()
	}
	return nil
}
