package core

import (
	"errors"
	"testing"
)

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name    string
		item    *CandidateItem
		wantErr error
	}{
		{
			name:    "valid paper",
			item:    &CandidateItem{ID: "2301.00001", Source: SourceArxiv},
			wantErr: nil,
		},
		{
			name:    "valid web result with empty title",
			item:    &CandidateItem{ID: "https://example.com/", Source: SourceWebSearch},
			wantErr: nil,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: ErrInvalidCandidate,
		},
		{
			name:    "blank id",
			item:    &CandidateItem{ID: "   ", Source: SourceArxiv},
			wantErr: ErrEmptyID,
		},
		{
			name:    "unknown source",
			item:    &CandidateItem{ID: "x", Source: "rss"},
			wantErr: ErrInvalidSourceTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.item)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCandidate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCandidate() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidCandidate) {
				t.Errorf("ValidateCandidate() error = %v, should wrap ErrInvalidCandidate", err)
			}
		})
	}
}

func TestValidateRecord(t *testing.T) {
	valid := func() *IngestionRecord {
		return &IngestionRecord{ID: "2301.00001", RoomID: "room", Content: "Title: x", Source: SourceArxiv}
	}

	tests := []struct {
		name    string
		mutate  func(r *IngestionRecord) *IngestionRecord
		wantErr error
	}{
		{name: "valid", mutate: func(r *IngestionRecord) *IngestionRecord { return r }},
		{name: "valid without vector", mutate: func(r *IngestionRecord) *IngestionRecord { r.Vector = nil; return r }},
		{name: "nil", mutate: func(r *IngestionRecord) *IngestionRecord { return nil }, wantErr: ErrInvalidRecord},
		{name: "empty id", mutate: func(r *IngestionRecord) *IngestionRecord { r.ID = ""; return r }, wantErr: ErrEmptyID},
		{name: "empty room", mutate: func(r *IngestionRecord) *IngestionRecord { r.RoomID = ""; return r }, wantErr: ErrEmptyRoomID},
		{name: "empty content", mutate: func(r *IngestionRecord) *IngestionRecord { r.Content = ""; return r }, wantErr: ErrEmptyContent},
		{name: "bad source", mutate: func(r *IngestionRecord) *IngestionRecord { r.Source = ""; return r }, wantErr: ErrInvalidSourceTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.mutate(valid()))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
