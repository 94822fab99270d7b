package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/citypair-slots/internal/model"
	"github.com/iliyamo/citypair-slots/internal/service"
)

type fakeService struct {
	created   service.CreateSlotInput
	updatedID uint64
	updated   [2]string
	deleted   uint64
	err       error
}

func (f *fakeService) CreateSlot(_ context.Context, in service.CreateSlotInput) (*model.Slot, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &model.Slot{ID: 7, RouteID: 1, AirlineID: 2, SlotTime: model.NewClock(9, 30, 0)}, nil
}

func (f *fakeService) UpdateSlot(_ context.Context, id uint64, slotTime, blockTime string) (*model.Slot, error) {
	f.updatedID, f.updated = id, [2]string{slotTime, blockTime}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Slot{ID: id, RouteID: 1, AirlineID: 2, SlotTime: model.NewClock(10, 0, 0)}, nil
}

func (f *fakeService) DeleteSlot(_ context.Context, id uint64) error {
	f.deleted = id
	return f.err
}

func (f *fakeService) ListSlots(context.Context) ([]model.SlotView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.SlotView{{ID: 1, AirlineCode: "6E", SlotTime: "09:30:00", BlockTime: "02:10:00"}}, nil
}

func (f *fakeService) ListCities(context.Context) ([]model.City, error) {
	return []model.City{{ID: 1, Name: "Delhi", AirportCode: "DEL"}}, f.err
}

func (f *fakeService) ListAirlines(context.Context) ([]model.Airline, error) {
	return []model.Airline{{ID: 1, Name: "IndiGo", Code: "6E"}}, f.err
}

func (f *fakeService) ListRoutes(context.Context) ([]model.RouteView, error) {
	return []model.RouteView{{ID: 1, FromCode: "DEL", ToCode: "BOM"}}, f.err
}

func serve(t *testing.T, h *SlotHandler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/v1/slots", h.ListSlots)
	e.POST("/v1/slots", h.CreateSlot)
	e.PUT("/v1/slots/:id", h.UpdateSlot)
	e.DELETE("/v1/slots/:id", h.DeleteSlot)
	e.GET("/v1/cities", h.ListCities)
	e.GET("/v1/routes", h.ListRoutes)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateSlotJSON(t *testing.T) {
	svc := &fakeService{}
	invalidated := 0
	h := NewSlotHandler(svc, func(context.Context) error { invalidated++; return nil }, nil)

	rec := serve(t, h, http.MethodPost, "/v1/slots", echo.MIMEApplicationJSON,
		`{"from_city":"del","to_city":"BOM","airline":" 6e ","slot_time":"09:30","duration_mode":"manual","block_time":"02:05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	want := service.CreateSlotInput{
		FromCode: "DEL", ToCode: "BOM", AirlineCode: "6E", SlotTime: "09:30",
		DurationMode: service.DurationManual, BlockTime: "02:05",
	}
	if svc.created != want {
		t.Fatalf("input = %+v, want %+v", svc.created, want)
	}
	if got := decode(t, rec)["slot_time"]; got != "09:30:00" {
		t.Fatalf("slot_time = %v", got)
	}
	if invalidated != 1 {
		t.Fatalf("invalidated = %d, want 1", invalidated)
	}
}

func TestCreateSlotForm(t *testing.T) {
	svc := &fakeService{}
	h := NewSlotHandler(svc, nil, nil)
	form := url.Values{"from_city": {"DEL"}, "to_city": {"BOM"}, "airline": {"6E"}, "slot_time": {"09:30"}}

	rec := serve(t, h, http.MethodPost, "/v1/slots", echo.MIMEApplicationForm, form.Encode())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if svc.created.AirlineCode != "6E" || svc.created.DurationMode != "" {
		t.Fatalf("input = %+v", svc.created)
	}
}

func TestCreateSlotMissingField(t *testing.T) {
	h := NewSlotHandler(&fakeService{}, nil, nil)
	rec := serve(t, h, http.MethodPost, "/v1/slots", echo.MIMEApplicationJSON,
		`{"from_city":"DEL","to_city":"BOM","slot_time":"09:30"}`)
	if rec.Code != http.StatusBadRequest || decode(t, rec)["error"] != "airline is required" {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestCreateSlotViolations(t *testing.T) {
	svc := &fakeService{err: &service.ValidationError{Violations: []service.Violation{
		{Code: service.ViolationAirlineCapacity, Message: "Maximum slots per airline (4) reached for this route"},
		{Code: service.ViolationSlotSpacing, Message: "Slot time conflicts with existing slots. Minimum gap required: 30 minutes"},
	}}}
	invalidated := false
	h := NewSlotHandler(svc, func(context.Context) error { invalidated = true; return nil }, nil)

	rec := serve(t, h, http.MethodPost, "/v1/slots", echo.MIMEApplicationJSON,
		`{"from_city":"DEL","to_city":"BOM","airline":"6E","slot_time":"09:45"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	wantMsg := "Failed to create slot: Maximum slots per airline (4) reached for this route\n" +
		"Slot time conflicts with existing slots. Minimum gap required: 30 minutes"
	if body["error"] != wantMsg {
		t.Fatalf("error = %q", body["error"])
	}
	violations, _ := body["violations"].([]any)
	if len(violations) != 2 || violations[0].(map[string]any)["code"] != "airline_capacity" {
		t.Fatalf("violations = %v", body["violations"])
	}
	if invalidated {
		t.Fatal("cache invalidated after a rejected create")
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &service.NotFoundError{Entity: "city", Key: "XXX"}, http.StatusNotFound},
		{"parse", &model.ParseError{Field: "slot_time", Value: "25:00"}, http.StatusBadRequest},
		{"wrapped parse", errors.Join(errors.New("ctx"), &model.ParseError{Field: "x"}), http.StatusBadRequest},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSlotHandler(&fakeService{err: tt.err}, nil, nil)
			rec := serve(t, h, http.MethodPost, "/v1/slots", echo.MIMEApplicationJSON,
				`{"from_city":"XXX","to_city":"BOM","airline":"6E","slot_time":"09:30"}`)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusInternalServerError && decode(t, rec)["error"] != "internal error" {
				t.Fatalf("internal error leaked: %s", rec.Body)
			}
		})
	}
}

func TestUpdateSlot(t *testing.T) {
	svc := &fakeService{}
	h := NewSlotHandler(svc, nil, nil)

	rec := serve(t, h, http.MethodPut, "/v1/slots/12", echo.MIMEApplicationJSON,
		`{"slot_time":"10:00","block_time":"02:20"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if svc.updatedID != 12 || svc.updated != [2]string{"10:00", "02:20"} {
		t.Fatalf("update args = %d %v", svc.updatedID, svc.updated)
	}

	rec = serve(t, h, http.MethodPut, "/v1/slots/abc", echo.MIMEApplicationJSON, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}

	svc.err = &service.NotFoundError{Entity: "slot", Key: "99"}
	rec = serve(t, h, http.MethodPut, "/v1/slots/99", echo.MIMEApplicationJSON, `{"slot_time":"10:00","block_time":"02:20"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing slot status = %d", rec.Code)
	}
}

func TestDeleteSlot(t *testing.T) {
	svc := &fakeService{}
	h := NewSlotHandler(svc, func(context.Context) error { return errors.New("redis down") }, nil)

	rec := serve(t, h, http.MethodDelete, "/v1/slots/5", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if got := decode(t, rec)["deleted"]; got != float64(5) || svc.deleted != 5 {
		t.Fatalf("deleted = %v, svc = %d", got, svc.deleted)
	}

	svc.err = &service.NotFoundError{Entity: "slot", Key: "5"}
	if rec := serve(t, h, http.MethodDelete, "/v1/slots/5", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestListings(t *testing.T) {
	h := NewSlotHandler(&fakeService{}, nil, nil)

	rec := serve(t, h, http.MethodGet, "/v1/slots", "", "")
	var views []model.SlotView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil || len(views) != 1 || views[0].BlockTime != "02:10:00" {
		t.Fatalf("slots = %s (%v)", rec.Body, err)
	}

	rec = serve(t, h, http.MethodGet, "/v1/cities", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"airport_code":"DEL"`) {
		t.Fatalf("cities = %d %s", rec.Code, rec.Body)
	}
	rec = serve(t, h, http.MethodGet, "/v1/routes", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"to_code":"BOM"`) {
		t.Fatalf("routes = %d %s", rec.Code, rec.Body)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
	if err := Health(c); err != nil || rec.Body.String() != "ok" {
		t.Fatalf("health = %q, %v", rec.Body.String(), err)
	}
}
