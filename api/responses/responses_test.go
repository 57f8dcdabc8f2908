package responses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/types"
)

func TestWriteSuccessWrapsDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["hello"] != "world" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestWriteErrorMapsDomainCodes(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unit not available",
			err:        pkgerrors.New(pkgerrors.CodeUnitNotAvailable, "book already out"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "UNIT_NOT_AVAILABLE",
		},
		{
			name:       "duplicate period",
			err:        pkgerrors.New(pkgerrors.CodeDuplicatePeriod, "dues already recorded for this period"),
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_PERIOD",
		},
		{
			name:       "untyped error hides internals",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d got %d", tc.wantStatus, rec.Code)
			}
			var envelope types.ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("expected code %s got %s", tc.wantCode, envelope.Error.Code)
			}
		})
	}
}

func TestWriteErrorExposesDetailsWhenAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeAmountMismatch, "full payment must equal the outstanding balance").
		WithDetails(map[string]int{"outstanding_cents": 600})
	WriteError(context.Background(), nil, rec, err)

	var envelope types.ErrorEnvelope
	if decodeErr := json.Unmarshal(rec.Body.Bytes(), &envelope); decodeErr != nil {
		t.Fatalf("decode response: %v", decodeErr)
	}
	details, ok := envelope.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", envelope.Error.Details)
	}
	if details["outstanding_cents"] != float64(600) {
		t.Fatalf("unexpected details: %+v", details)
	}
}
