package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainconfessional/sinscan/internal/core/domain"
)

type fakeSource struct {
	set   *domain.TransferSet
	err   error
	calls int
}

func (s *fakeSource) WalletTransfers(_ context.Context, _ common.Address) (*domain.TransferSet, error) {
	s.calls++
	return s.set, s.err
}

type fakeScanner struct {
	set   *domain.TransferSet
	err   error
	calls int
}

func (s *fakeScanner) Scan(_ context.Context, _ common.Address) (*domain.TransferSet, error) {
	s.calls++
	return s.set, s.err
}

func TestFetchTransfersPrimaryWins(t *testing.T) {
	want := &domain.TransferSet{Buys: []domain.TransferRecord{{BlockNumber: 1}}}
	primary := &fakeSource{set: want}
	fallback := &fakeScanner{}

	set, err := NewFetcher(primary, fallback).FetchTransfers(context.Background(), scanWallet)
	if err != nil {
		t.Fatalf("FetchTransfers: %v", err)
	}
	if set != want {
		t.Error("primary result not returned")
	}
	if fallback.calls != 0 {
		t.Error("fallback consulted although the primary succeeded")
	}
}

func TestFetchTransfersEmptyPrimaryIsTerminal(t *testing.T) {
	primary := &fakeSource{set: &domain.TransferSet{}}
	fallback := &fakeScanner{set: &domain.TransferSet{Buys: []domain.TransferRecord{{BlockNumber: 1}}}}

	set, err := NewFetcher(primary, fallback).FetchTransfers(context.Background(), scanWallet)
	if err != nil {
		t.Fatalf("FetchTransfers: %v", err)
	}
	if !set.Empty() {
		t.Error("valid empty primary result replaced by fallback data")
	}
	if fallback.calls != 0 {
		t.Error("fallback consulted for a valid empty result")
	}
}

func TestFetchTransfersFallsBack(t *testing.T) {
	want := &domain.TransferSet{Sells: []domain.TransferRecord{{BlockNumber: 2}}}
	primary := &fakeSource{err: errors.New("explorer 502")}
	fallback := &fakeScanner{set: want}

	set, err := NewFetcher(primary, fallback).FetchTransfers(context.Background(), scanWallet)
	if err != nil {
		t.Fatalf("FetchTransfers: %v", err)
	}
	if set != want {
		t.Error("fallback result not returned")
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls primary/fallback = %d/%d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestFetchTransfersFallbackErrorPropagates(t *testing.T) {
	boom := errors.New("node unreachable")
	primary := &fakeSource{err: errors.New("explorer 502")}
	fallback := &fakeScanner{err: boom}

	if _, err := NewFetcher(primary, fallback).FetchTransfers(context.Background(), scanWallet); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the fallback error", err)
	}
}
