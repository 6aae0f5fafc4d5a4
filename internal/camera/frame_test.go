package camera

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

func TestUpdateFrameRequiresCapture(t *testing.T) {
	s := newTestSession(t, newFakeTransport(), nil)
	if err := s.UpdateFrame(context.Background()); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("err = %v, want ErrNotCapturing", err)
	}
}

func TestUpdateFrameRetriesUntilSuccess(t *testing.T) {
	ft := newFakeTransport()
	ft.pollFailures = 3
	ft.queue(fakeFrame{width: 4, height: 2, format: PixelFormatBayerRG8, fill: 9})
	pub := &recordingPublisher{}
	s := openCapturing(t, ft, &fakeKernel{}, WithPublisher(pub))

	if err := s.UpdateFrame(context.Background()); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}

	if n := ft.count("GetImage"); n != 4 {
		t.Errorf("GetImage called %d times, want 4", n)
	}
	if s.Width() != 4 || s.Height() != 2 || s.PixelFormat() != PixelFormatBayerRG8 || s.FrameID() != 1 {
		t.Errorf("frame = %dx%d %v id=%d", s.Width(), s.Height(), s.PixelFormat(), s.FrameID())
	}

	gray := s.GrayFrame().Bytes()
	for i := range 8 {
		if gray[i] != 9 {
			t.Fatalf("gray[%d] = %d, want 9", i, gray[i])
		}
	}

	if pub.count(events.TypeFrameAcquired) != 1 {
		t.Fatal("no FrameAcquiredEvent published")
	}
	for _, ev := range pub.events {
		if e, ok := ev.(events.FrameAcquiredEvent); ok && e.Attempts != 4 {
			t.Errorf("attempts = %d, want 4", e.Attempts)
		}
	}
}

func TestUpdateFrameTimeout(t *testing.T) {
	s := openCapturing(t, newFakeTransport(), &fakeKernel{})

	start := time.Now()
	err := s.UpdateFrameTimeout(20 * time.Millisecond)
	if !errors.Is(err, ErrFrameTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want frame timeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestUpdateFrameCancel(t *testing.T) {
	s := openCapturing(t, newFakeTransport(), &fakeKernel{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := s.UpdateFrame(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrFrameTimeout) {
		t.Error("cancellation reported as timeout")
	}
}

func TestViewsGoStaleOnNextFrame(t *testing.T) {
	ft := newFakeTransport()
	ft.queue(
		fakeFrame{width: 2, height: 2, format: PixelFormatMono8, fill: 1},
		fakeFrame{width: 2, height: 2, format: PixelFormatMono8, fill: 2},
	)
	s := openCapturing(t, ft, &fakeKernel{})

	if err := s.UpdateFrame(context.Background()); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	first := s.GrayFrame()
	if !first.Valid() || first.Bytes()[0] != 1 {
		t.Fatal("first view not readable")
	}

	if err := s.UpdateFrame(context.Background()); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	if first.Valid() || first.Bytes() != nil {
		t.Error("first view still valid after next frame")
	}
	if !errors.Is(first.Err(), ErrStaleView) {
		t.Errorf("Err() = %v, want ErrStaleView", first.Err())
	}

	second := s.GrayFrame()
	if second.Bytes()[0] != 2 || second.FrameID != 2 {
		t.Errorf("second view = %d id=%d", second.Bytes()[0], second.FrameID)
	}
}

func TestZeroViewWhenNotCapturing(t *testing.T) {
	s := newTestSession(t, newFakeTransport(), nil)

	view := s.GrayFrame()
	if view.Bytes() != nil || !errors.Is(view.Err(), ErrNoFrame) {
		t.Errorf("view = %+v err=%v", view, view.Err())
	}
	if s.ColorFrame().Bytes() != nil {
		t.Error("color view not empty")
	}
}

func TestHighBitGrayViewImage(t *testing.T) {
	ft := newFakeTransport()
	// The fake writes fill into the first width*height bytes, so the
	// first two 16-bit samples are 0x0101.
	ft.queue(fakeFrame{width: 2, height: 2, format: PixelFormatBayerRG12, fill: 0x01})
	s := openCapturing(t, ft, &fakeKernel{})
	if err := s.UpdateFrame(context.Background()); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}

	view := s.GrayFrame()
	if view.BytesPerSample != 2 || view.Stride() != 4 {
		t.Fatalf("bytes per sample = %d, stride = %d", view.BytesPerSample, view.Stride())
	}
	img, err := view.Image()
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	g, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("image = %T, want *image.Gray16", img)
	}
	if v := g.Gray16At(1, 0).Y; v != 0x0101<<4 {
		t.Errorf("sample = %#x, want %#x", v, 0x0101<<4)
	}
	if v := g.Gray16At(0, 1).Y; v != 0 {
		t.Errorf("sample = %#x, want 0", v)
	}
}

func TestViewImage(t *testing.T) {
	ft := newFakeTransport()
	ft.queue(fakeFrame{width: 2, height: 2, format: PixelFormatBayerBG8, fill: 40})
	s := openCapturing(t, ft, &fakeKernel{})
	if err := s.UpdateFrame(context.Background()); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}

	grayImg, err := s.GrayFrame().Image()
	if err != nil {
		t.Fatalf("gray Image: %v", err)
	}
	if g, ok := grayImg.(*image.Gray); !ok || g.GrayAt(1, 1).Y != 40 {
		t.Errorf("gray image = %T", grayImg)
	}

	colorImg, err := s.ColorFrame().Image()
	if err != nil {
		t.Fatalf("color Image: %v", err)
	}
	rgba, ok := colorImg.(*image.RGBA)
	if !ok {
		t.Fatalf("color image = %T", colorImg)
	}
	if c := rgba.RGBAAt(0, 1); c.R != 41 || c.G != 41 || c.B != 41 || c.A != 0xff {
		t.Errorf("pixel = %+v", c)
	}
}
