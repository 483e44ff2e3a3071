package proctor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/pavelanni/interviewer/internal/model"
)

// ErrInvalidFrame is returned when a frame cannot be decoded.
var ErrInvalidFrame = errors.New("invalid video frame")

// Face is one detected face in frame pixel coordinates. Eye rectangles are
// empty when the analyzer reports no eye landmarks.
type Face struct {
	Box      image.Rectangle
	LeftEye  image.Rectangle
	RightEye image.Rectangle
}

// FaceAnalyzer finds faces in an encoded image.
type FaceAnalyzer interface {
	DetectFaces(ctx context.Context, frame []byte) ([]Face, error)
}

// DetectorConfig tunes the frame rules.
type DetectorConfig struct {
	CalibrationFrames  int
	NoFaceAfter        time.Duration
	CoverRatio         float64 // face brightness below prev*ratio counts as covered
	FaceCoverThreshold int
	EyeCoverThreshold  int
	EyeDarkLevel       float64
	EyePadding         int
}

// DefaultDetectorConfig matches the production thresholds.
var DefaultDetectorConfig = DetectorConfig{
	CalibrationFrames:  30,
	NoFaceAfter:        3 * time.Second,
	CoverRatio:         0.6,
	FaceCoverThreshold: 15,
	EyeCoverThreshold:  10,
	EyeDarkLevel:       50,
	EyePadding:         10,
}

// minFacePixels skips brightness checks on tiny face boxes.
const minFacePixels = 34

// Detection is the outcome of one frame.
type Detection struct {
	Alerts              []model.AlertToken `json:"alerts"`
	FacePresent         bool               `json:"detected"`
	FaceCount           int                `json:"face_count"`
	CalibrationComplete bool               `json:"calibration_complete"`
	CalibrationFrames   int                `json:"calibration_frames"`
	FaceCoverCounter    int                `json:"face_cover_counter"`
	EyeCoverCounter     int                `json:"eye_cover_counter"`
}

// Detector applies the proctoring rules to a stream of frames from one
// session. It keeps calibration and brightness state between frames and
// is safe for concurrent use.
type Detector struct {
	analyzer FaceAnalyzer
	cfg      DetectorConfig
	now      func() time.Time

	mu                sync.Mutex
	lastFace          time.Time
	calibrationFrames int
	calibrated        bool
	faceCover         int
	eyeCover          int
	prevBrightness    float64
	havePrev          bool
}

// NewDetector creates a detector. The no-face timer starts now.
func NewDetector(a FaceAnalyzer, cfg DetectorConfig) *Detector {
	return newDetector(a, cfg, time.Now)
}

func newDetector(a FaceAnalyzer, cfg DetectorConfig, now func() time.Time) *Detector {
	return &Detector{analyzer: a, cfg: cfg, now: now, lastFace: now()}
}

// Detect analyses one encoded frame (JPEG, PNG or WebP).
func (d *Detector) Detect(ctx context.Context, frame []byte) (res Detection, err error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return Detection{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	faces, err := d.analyzer.DetectFaces(ctx, frame)
	if err != nil {
		return Detection{}, fmt.Errorf("detect faces: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	res = Detection{FaceCount: len(faces), FacePresent: len(faces) > 0}
	defer func() {
		res.CalibrationComplete = d.calibrated
		res.CalibrationFrames = d.calibrationFrames
		res.FaceCoverCounter = d.faceCover
		res.EyeCoverCounter = d.eyeCover
	}()

	if len(faces) > 1 {
		res.Alerts = append(res.Alerts, model.AlertMultiplePeople)
	}
	now := d.now()
	if !res.FacePresent {
		if now.Sub(d.lastFace) > d.cfg.NoFaceAfter {
			res.Alerts = append(res.Alerts, model.AlertNoFace)
		}
		d.faceCover = 0
		d.eyeCover = 0
		return res, nil
	}
	d.lastFace = now

	if !d.calibrated {
		d.calibrationFrames++
		if d.calibrationFrames >= d.cfg.CalibrationFrames {
			d.calibrated = true
		}
		return res, nil
	}

	face := faces[0]
	box := face.Box.Intersect(img.Bounds())
	if box.Dx()*box.Dy() < minFacePixels {
		return res, nil
	}

	cur := meanLuma(img, box)
	if d.havePrev {
		if cur < d.prevBrightness*d.cfg.CoverRatio {
			d.faceCover++
			if d.faceCover >= d.cfg.FaceCoverThreshold {
				res.Alerts = append(res.Alerts, model.AlertFaceCovered)
			}
		} else {
			d.faceCover = max(0, d.faceCover-1)
		}
	}
	d.prevBrightness = cur
	d.havePrev = true

	if d.eyesDark(img, face) {
		d.eyeCover++
		if d.eyeCover >= d.cfg.EyeCoverThreshold {
			res.Alerts = append(res.Alerts, model.AlertEyesCovered)
		}
	} else {
		d.eyeCover = max(0, d.eyeCover-1)
	}
	return res, nil
}

func (d *Detector) eyesDark(img image.Image, f Face) bool {
	dark := 0
	for _, eye := range []image.Rectangle{f.LeftEye, f.RightEye} {
		if eye.Empty() {
			continue
		}
		r := eye.Inset(-d.cfg.EyePadding).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		if meanLuma(img, r) < d.cfg.EyeDarkLevel {
			dark++
		}
	}
	return dark >= 2
}

// meanLuma is the mean 8-bit gray level of r.
func meanLuma(img image.Image, r image.Rectangle) float64 {
	n := r.Dx() * r.Dy()
	if n <= 0 {
		return 0
	}
	var sum uint64
	switch m := img.(type) {
	case *image.YCbCr:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				sum += uint64(m.Y[m.YOffset(x, y)])
			}
		}
	case *image.Gray:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				sum += uint64(m.GrayAt(x, y).Y)
			}
		}
	default:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				sum += uint64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			}
		}
	}
	return float64(sum) / float64(n)
}
