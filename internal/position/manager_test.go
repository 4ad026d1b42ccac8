package position

import (
	"context"
	"testing"

	"options-controller/internal/domain"
)

type fakeRepo struct {
	inserted []domain.Position
	closed   []domain.Position
}

func (f *fakeRepo) Insert(ctx context.Context, p domain.Position) error {
	f.inserted = append(f.inserted, p)
	return nil
}
func (f *fakeRepo) UpdateMark(ctx context.Context, positionID string, currentPrice, unrealizedPnL float64) error {
	return nil
}
func (f *fakeRepo) Close(ctx context.Context, p domain.Position) error {
	f.closed = append(f.closed, p)
	return nil
}
func (f *fakeRepo) UpdateQuantity(ctx context.Context, positionID string, quantity int) error {
	return nil
}
func (f *fakeRepo) GetBySignalID(ctx context.Context, signalID string) (*domain.Position, error) {
	return nil, nil
}
func (f *fakeRepo) ListOpen(ctx context.Context) ([]domain.Position, error) { return nil, nil }
func (f *fakeRepo) TotalOpenExposure(ctx context.Context) (float64, error) { return 0, nil }

func TestOpenPositionTracksExposure(t *testing.T) {
	repo := &fakeRepo{}
	m := NewManager(repo, nil, 100000)

	sig := domain.Signal{ID: "sig-1", Symbol: "SPY", Direction: domain.DirectionCall}
	pos, err := m.OpenPosition(context.Background(), sig, 2, 5.0)
	if err != nil {
		t.Fatalf("OpenPosition returned error: %v", err)
	}
	if pos.Status != domain.PositionOpen {
		t.Errorf("Status = %q, want OPEN", pos.Status)
	}

	wantExposure := 5.0 * 2 * optionsMultiplier
	if got := m.TotalExposure(); got != wantExposure {
		t.Errorf("TotalExposure = %v, want %v", got, wantExposure)
	}
}

func TestOpenPositionRejectsDuplicateSignal(t *testing.T) {
	repo := &fakeRepo{}
	m := NewManager(repo, nil, 100000)
	sig := domain.Signal{ID: "sig-1", Symbol: "SPY"}

	if _, err := m.OpenPosition(context.Background(), sig, 1, 5.0); err != nil {
		t.Fatalf("first OpenPosition returned error: %v", err)
	}
	if _, err := m.OpenPosition(context.Background(), sig, 1, 5.0); err != ErrDuplicatePosition {
		t.Errorf("second OpenPosition error = %v, want ErrDuplicatePosition", err)
	}
}

func TestClosePositionRemovesFromIndexAndExposure(t *testing.T) {
	repo := &fakeRepo{}
	m := NewManager(repo, nil, 100000)
	sig := domain.Signal{ID: "sig-1", Symbol: "SPY"}
	pos, _ := m.OpenPosition(context.Background(), sig, 1, 5.0)

	closed, err := m.ClosePosition(context.Background(), pos.ID, 7.0, domain.ExitProfitTarget)
	if err != nil {
		t.Fatalf("ClosePosition returned error: %v", err)
	}
	if closed.Status != domain.PositionClosed {
		t.Errorf("Status = %q, want CLOSED", closed.Status)
	}
	if *closed.RealizedPnL != (7.0-5.0)*1*optionsMultiplier {
		t.Errorf("RealizedPnL = %v, want %v", *closed.RealizedPnL, (7.0-5.0)*1*optionsMultiplier)
	}
	if m.TotalExposure() != 0 {
		t.Errorf("TotalExposure after close = %v, want 0", m.TotalExposure())
	}
	if _, ok := m.GetOpenPosition(pos.ID); ok {
		t.Error("expected position to be removed from open index after close")
	}
}

func TestReduceQuantityAdjustsExposureProportionally(t *testing.T) {
	repo := &fakeRepo{}
	m := NewManager(repo, nil, 100000)
	sig := domain.Signal{ID: "sig-1", Symbol: "SPY"}
	pos, _ := m.OpenPosition(context.Background(), sig, 4, 5.0)

	if err := m.ReduceQuantity(context.Background(), pos.ID, 2); err != nil {
		t.Fatalf("ReduceQuantity returned error: %v", err)
	}

	wantExposure := 5.0 * 2 * optionsMultiplier
	if got := m.TotalExposure(); got != wantExposure {
		t.Errorf("TotalExposure after reduce = %v, want %v", got, wantExposure)
	}
}

func TestWouldExceedMaxExposure(t *testing.T) {
	repo := &fakeRepo{}
	m := NewManager(repo, nil, 1000)
	sig := domain.Signal{ID: "sig-1", Symbol: "SPY"}
	m.OpenPosition(context.Background(), sig, 1, 5.0) // 500 exposure

	if m.WouldExceedMaxExposure(400) {
		t.Error("expected 500+400=900 to not exceed max of 1000")
	}
	if !m.WouldExceedMaxExposure(600) {
		t.Error("expected 500+600=1100 to exceed max of 1000")
	}
}
