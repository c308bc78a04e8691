package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// blurKernel is the Gaussian kernel size used to suppress sensor noise
// before frame differencing.
const blurKernel = 21

// pixelDelta is the per-pixel intensity change that counts as different.
const pixelDelta = 25

// MotionDetector gates hand detection: frames only reach the landmark
// detector while the scene is changing. Detection is frame differencing
// against a rolling blurred-grayscale baseline.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	baseline  gocv.Mat
	primed    bool
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage
// of pixels that must change between frames to count as motion. The
// baseline Mat is allocated lazily by the first Detect.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold}
}

// Detect reports whether the frame differs from the previous one, along
// with the percentage of pixels that changed. The first frame after
// creation or Reset primes the baseline and never reports motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	smoothed := smooth(frame)
	defer smoothed.Close()

	if !m.primed {
		m.baseline = smoothed.Clone()
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(smoothed, m.baseline, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	smoothed.CopyTo(&m.baseline)

	return changed > m.threshold, changed
}

// smooth converts a frame to blurred grayscale for differencing.
func smooth(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)
	return blurred
}

// SetThreshold updates the motion threshold. Non-positive values are
// ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Reset drops the baseline so the next frame re-primes it.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropBaseline()
}

// Close releases the baseline frame. Safe to call more than once; a later
// Detect re-primes from scratch.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropBaseline()
}

// dropBaseline releases the baseline Mat without allocating a
// replacement, so a closed detector holds no native handles.
func (m *MotionDetector) dropBaseline() {
	if m.primed {
		m.baseline.Close()
		m.primed = false
	}
}
