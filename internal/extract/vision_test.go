package extract

import (
	"context"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/status"
)

type fakeAnnotator struct {
	files  *visionpb.BatchAnnotateFilesResponse
	images *visionpb.BatchAnnotateImagesResponse

	filesReq  *visionpb.BatchAnnotateFilesRequest
	imagesReq *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateFiles(_ context.Context, req *visionpb.BatchAnnotateFilesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error) {
	f.filesReq = req
	return f.files, nil
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.imagesReq = req
	return f.images, nil
}

func page(text string) *visionpb.AnnotateImageResponse {
	return &visionpb.AnnotateImageResponse{FullTextAnnotation: &visionpb.TextAnnotation{Text: text}}
}

func TestVisionOCR_PDFJoinsPages(t *testing.T) {
	fake := &fakeAnnotator{files: &visionpb.BatchAnnotateFilesResponse{
		Responses: []*visionpb.AnnotateFileResponse{{
			Responses: []*visionpb.AnnotateImageResponse{page("INVOICE A-17"), page("TOTAL 124,00")},
		}},
	}}

	got, err := (&VisionOCR{client: fake}).Text(context.Background(), Document{ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)

	assert.Equal(t, "INVOICE A-17\n\n--- page 2 ---\n\nTOTAL 124,00", got)
	require.NotNil(t, fake.filesReq)
	assert.Equal(t, "application/pdf", fake.filesReq.GetRequests()[0].GetInputConfig().GetMimeType())
	assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, fake.filesReq.GetRequests()[0].GetFeatures()[0].GetType())
}

func TestVisionOCR_Image(t *testing.T) {
	fake := &fakeAnnotator{images: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{page("RECEIPT 9,90")},
	}}

	got, err := (&VisionOCR{client: fake}).Text(context.Background(), Document{ContentType: "image/jpeg", Data: []byte{0xFF, 0xD8}})
	require.NoError(t, err)

	assert.Equal(t, "RECEIPT 9,90", got)
	assert.Equal(t, []byte{0xFF, 0xD8}, fake.imagesReq.GetRequests()[0].GetImage().GetContent())
}

func TestVisionOCR_PageError(t *testing.T) {
	fake := &fakeAnnotator{files: &visionpb.BatchAnnotateFilesResponse{
		Responses: []*visionpb.AnnotateFileResponse{{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &status.Status{Message: "bad page"}}},
		}},
	}}

	_, err := (&VisionOCR{client: fake}).Text(context.Background(), Document{ContentType: "application/pdf"})
	assert.ErrorContains(t, err, "bad page")
}

func TestVisionOCR_Unsupported(t *testing.T) {
	_, err := (&VisionOCR{client: &fakeAnnotator{}}).Text(context.Background(), Document{ContentType: "application/xml"})
	assert.ErrorIs(t, err, ErrUnsupported)
}
