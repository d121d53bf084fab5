package vitals

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/surgisync/internal/api/apitest"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
)

func TestGeneratorStaysInRange(t *testing.T) {
	g := NewGenerator(42)
	v := models.Vitals{PatientID: "p1", HeartRate: "109", BloodPressure: "139/89", SpO2: "99%"}
	now := time.Now()
	for i := 0; i < 500; i++ {
		v = g.Next(v, now)
		r := parse(v)
		if r.hr < MinHeartRate || r.hr > MaxHeartRate {
			t.Fatalf("heart rate %d out of range", r.hr)
		}
		if r.sys < MinSystolic || r.sys > MaxSystolic || r.dia < MinDiastolic || r.dia > MaxDiastolic {
			t.Fatalf("blood pressure %s out of range", v.BloodPressure)
		}
		if r.spo2 < MinSpO2 || r.spo2 > MaxSpO2 {
			t.Fatalf("spo2 %d out of range", r.spo2)
		}
	}
	if v.PatientID != "p1" {
		t.Errorf("patient id lost: %q", v.PatientID)
	}
}

func TestGeneratorHandlesEmptyReading(t *testing.T) {
	v := NewGenerator(1).Next(models.Vitals{}, time.Now())
	if _, err := strconv.Atoi(v.HeartRate); err != nil {
		t.Errorf("heart rate %q not numeric", v.HeartRate)
	}
	if !strings.Contains(v.BloodPressure, "/") {
		t.Errorf("blood pressure %q", v.BloodPressure)
	}
	if v.CapturedAt == "" {
		t.Error("captured_at not set")
	}
}

func TestPollerRecordsAndStopsOnCancel(t *testing.T) {
	fake := apitest.New()
	p := NewPoller(fake, "p1", 5*time.Millisecond, models.Vitals{}, nil)

	var mu sync.Mutex
	readings := 0
	p.OnReading = func(models.Vitals) {
		mu.Lock()
		readings++
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for fake.VitalsCount() < 3 {
		select {
		case <-deadline:
			t.Fatal("poller did not record vitals")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	stopped := fake.VitalsCount()
	time.Sleep(30 * time.Millisecond)
	if fake.VitalsCount() != stopped {
		t.Error("poller kept writing after it stopped")
	}
	if p.Last().PatientID != "p1" {
		t.Errorf("last reading = %+v", p.Last())
	}
	mu.Lock()
	defer mu.Unlock()
	if readings < 3 {
		t.Errorf("expected at least 3 callbacks, got %d", readings)
	}
}

func TestPollerSurfacesFailureOncePerStreak(t *testing.T) {
	fake := apitest.New()
	fake.SetFail("RecordVitals", errors.New("offline"))

	var mu sync.Mutex
	var toasts []string
	n := notifier.Func(func(_ notifier.Level, text string) error {
		mu.Lock()
		toasts = append(toasts, text)
		mu.Unlock()
		return nil
	})
	p := NewPoller(fake, "p1", 2*time.Millisecond, models.Vitals{}, n)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for fake.CallCount("RecordVitals") < 5 {
		select {
		case <-deadline:
			t.Fatal("poller did not retry")
		case <-time.After(2 * time.Millisecond):
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(toasts) != 1 {
		t.Errorf("expected one notification for the streak, got %d", len(toasts))
	}
}
