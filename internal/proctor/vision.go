package proctor

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/pavelanni/interviewer/internal/gcp"
	"github.com/pavelanni/interviewer/internal/workpool"
)

const maxVisionFaces = 5

// VisionAnalyzer detects faces with the Google Cloud Vision API.
type VisionAnalyzer struct {
	client *vision.ImageAnnotatorClient
	retry  gcp.Retry
}

// NewVisionAnalyzer opens a Vision client using credentials from the
// environment. Transient API errors are retried according to r.
func NewVisionAnalyzer(ctx context.Context, r gcp.Retry) (*VisionAnalyzer, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	slog.Info("vision face analyzer ready")
	return &VisionAnalyzer{client: c, retry: r}, nil
}

// Close releases the underlying connection.
func (v *VisionAnalyzer) Close() error {
	return v.client.Close()
}

// DetectFaces implements FaceAnalyzer.
func (v *VisionAnalyzer) DetectFaces(ctx context.Context, frame []byte) ([]Face, error) {
	req := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
		Image:    &visionpb.Image{Content: frame},
		Features: []*visionpb.Feature{{Type: visionpb.Feature_FACE_DETECTION, MaxResults: maxVisionFaces}},
	}}}
	resp, err := gcp.Do(ctx, v.retry, func(ctx context.Context) (*visionpb.BatchAnnotateImagesResponse, error) {
		return v.client.BatchAnnotateImages(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	faces := make([]Face, 0, len(r0.FaceAnnotations))
	for _, fa := range r0.FaceAnnotations {
		faces = append(faces, faceFromAnnotation(fa))
	}
	return faces, nil
}

var (
	leftEyeLandmarks = []visionpb.FaceAnnotation_Landmark_Type{
		visionpb.FaceAnnotation_Landmark_LEFT_EYE_LEFT_CORNER,
		visionpb.FaceAnnotation_Landmark_LEFT_EYE_RIGHT_CORNER,
		visionpb.FaceAnnotation_Landmark_LEFT_EYE_TOP_BOUNDARY,
		visionpb.FaceAnnotation_Landmark_LEFT_EYE_BOTTOM_BOUNDARY,
	}
	rightEyeLandmarks = []visionpb.FaceAnnotation_Landmark_Type{
		visionpb.FaceAnnotation_Landmark_RIGHT_EYE_LEFT_CORNER,
		visionpb.FaceAnnotation_Landmark_RIGHT_EYE_RIGHT_CORNER,
		visionpb.FaceAnnotation_Landmark_RIGHT_EYE_TOP_BOUNDARY,
		visionpb.FaceAnnotation_Landmark_RIGHT_EYE_BOTTOM_BOUNDARY,
	}
)

func faceFromAnnotation(fa *visionpb.FaceAnnotation) Face {
	poly := fa.GetFdBoundingPoly()
	if len(poly.GetVertices()) == 0 {
		poly = fa.GetBoundingPoly()
	}
	var pts []image.Point
	for _, v := range poly.GetVertices() {
		pts = append(pts, image.Pt(int(v.GetX()), int(v.GetY())))
	}
	return Face{
		Box:      boundingRect(pts),
		LeftEye:  landmarkRect(fa, leftEyeLandmarks),
		RightEye: landmarkRect(fa, rightEyeLandmarks),
	}
}

func landmarkRect(fa *visionpb.FaceAnnotation, types []visionpb.FaceAnnotation_Landmark_Type) image.Rectangle {
	var pts []image.Point
	for _, lm := range fa.GetLandmarks() {
		for _, t := range types {
			if lm.GetType() == t {
				p := lm.GetPosition()
				pts = append(pts, image.Pt(int(p.GetX()), int(p.GetY())))
			}
		}
	}
	return boundingRect(pts)
}

// boundingRect returns the smallest rectangle containing every point, or
// the zero rectangle when pts is empty.
func boundingRect(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

type pooledAnalyzer struct {
	inner FaceAnalyzer
	pool  *workpool.Pool
}

// WithPool limits concurrent analyzer calls through the shared worker pool.
func WithPool(a FaceAnalyzer, p *workpool.Pool) FaceAnalyzer {
	return &pooledAnalyzer{inner: a, pool: p}
}

func (p *pooledAnalyzer) DetectFaces(ctx context.Context, frame []byte) ([]Face, error) {
	return workpool.Run(ctx, p.pool, func(ctx context.Context) ([]Face, error) {
		return p.inner.DetectFaces(ctx, frame)
	})
}
