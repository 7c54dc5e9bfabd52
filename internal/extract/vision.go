package extract

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// annotator is the subset of *vision.ImageAnnotatorClient used here.
type annotator interface {
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// VisionOCR reads document text with Google Cloud Vision.
type VisionOCR struct {
	client annotator
	close  func() error
}

// NewVisionOCR connects with credentialsFile, or application default
// credentials when it is empty.
func NewVisionOCR(ctx context.Context, credentialsFile string) (*VisionOCR, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &VisionOCR{client: client, close: client.Close}, nil
}

func (v *VisionOCR) Close() error {
	if v.close == nil {
		return nil
	}

	return v.close()
}

var documentText = []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}

func (v *VisionOCR) Text(ctx context.Context, doc Document) (string, error) {
	mt := mediaType(doc.ContentType)

	if mt == "application/pdf" {
		return v.pdfText(ctx, doc.Data)
	}

	if strings.HasPrefix(mt, "image/") {
		return v.imageText(ctx, doc.Data)
	}

	return "", fmt.Errorf("%w for ocr: %s", ErrUnsupported, mt)
}

func (v *VisionOCR) pdfText(ctx context.Context, data []byte) (string, error) {
	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: data, MimeType: "application/pdf"},
			Features:    documentText,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("annotating pdf: %w", err)
	}

	if len(resp.GetResponses()) == 0 {
		return "", ErrNoText
	}

	file := resp.GetResponses()[0]
	if file.GetError() != nil {
		return "", fmt.Errorf("annotating pdf: %s", file.GetError().GetMessage())
	}

	var sb strings.Builder

	for i, page := range file.GetResponses() {
		if page.GetError() != nil {
			return "", fmt.Errorf("annotating page %d: %s", i+1, page.GetError().GetMessage())
		}

		if i > 0 {
			fmt.Fprintf(&sb, "\n\n--- page %d ---\n\n", i+1)
		}

		sb.WriteString(page.GetFullTextAnnotation().GetText())
	}

	return sb.String(), nil
}

func (v *VisionOCR) imageText(ctx context.Context, data []byte) (string, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: data},
			Features: documentText,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("annotating image: %w", err)
	}

	if len(resp.GetResponses()) == 0 {
		return "", ErrNoText
	}

	img := resp.GetResponses()[0]
	if img.GetError() != nil {
		return "", fmt.Errorf("annotating image: %s", img.GetError().GetMessage())
	}

	return img.GetFullTextAnnotation().GetText(), nil
}
