package services

import (
	"testing"
)

func TestNewLedgerService(t *testing.T) {
	service := NewLedgerService(nil, nil)
	if service == nil {
		t.Fatal("NewLedgerService should return a non-nil service")
	}
	if service.publisher != nil {
		t.Error("publisher should stay nil when none is provided")
	}
}

func TestLedgerServiceCloseNilComponents(t *testing.T) {
	service := &LedgerService{}
	if err := service.Close(); err != nil {
		t.Fatalf("Close() with nil components error = %v", err)
	}
}
