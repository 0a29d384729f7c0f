package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"example.com/marathon/internal/domain"
	"example.com/marathon/internal/logging"
	"example.com/marathon/internal/validation"
)

// RunningDataRequest is the payload for PATCH /running-data. DailyData is a
// pointer so that an absent field can be told apart from an empty array.
type RunningDataRequest struct {
	UserID    string                `json:"userId"`
	DailyData *[]DailyRecordPayload `json:"dailyData"`
}

// DailyRecordPayload is one incoming day. Speed is never read from input.
type DailyRecordPayload struct {
	Day      Day      `json:"day" validate:"required"`
	Distance *float64 `json:"distance" validate:"omitempty,gte=0"`
	Time     *float64 `json:"time" validate:"omitempty,gte=0"`
	Year     *int     `json:"year"`
	Month    *int     `json:"month"`
}

// Day accepts a day ordinal sent either as a JSON string or a number.
type Day string

// UnmarshalJSON implements json.Unmarshaler.
func (d *Day) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Day(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return fmt.Errorf("day %s is not a whole number", n)
	}
	// 5, 5.0 and 5e0 all name the same day.
	*d = Day(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// RunningDataResponse wraps the merged log.
type RunningDataResponse struct {
	Message string                `json:"message"`
	Data    domain.UserRunningLog `json:"data"`
}

func (req RunningDataRequest) toInputs() ([]domain.DailyRecordInput, error) {
	if req.DailyData == nil {
		return nil, nil
	}
	items := *req.DailyData
	inputs := make([]domain.DailyRecordInput, 0, len(items))
	for i, item := range items {
		if err := validation.Struct(item, "dailyData["+strconv.Itoa(i)+"]"); err != nil {
			return nil, err
		}
		inputs = append(inputs, domain.DailyRecordInput{
			Day:      string(item.Day),
			Distance: item.Distance,
			Time:     item.Time,
			Year:     item.Year,
			Month:    item.Month,
		})
	}
	return inputs, nil
}

func (h *Handler) mergeRunningData(w http.ResponseWriter, r *http.Request) {
	var req RunningDataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "User ID and daily data required")
		return
	}

	inputs, err := req.toInputs()
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}

	result, err := h.running.MergeDailyData(r.Context(), req.UserID, inputs)
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user_id", req.UserID).
		Int("days", len(inputs)).
		Bool("created", result.Created).
		Msg("running log merged")

	if result.Created {
		writeJSON(w, http.StatusCreated, RunningDataResponse{Message: "Data saved successfully", Data: result.Log})
		return
	}
	writeJSON(w, http.StatusOK, RunningDataResponse{Message: "Data updated successfully", Data: result.Log})
}

func (h *Handler) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.running.ComputeStats(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeDomainError(w, r, err, "No data found for this user")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
