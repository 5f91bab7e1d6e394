package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"ppg-heartrate/models"
	"ppg-heartrate/utils"

	"github.com/mdobak/go-xerrors"
)

type readingStore interface {
	StoreReading(r models.Reading) (int64, error)
	RecentReadings(deviceID string, limit int) ([]models.Reading, error)
}

// recordReading stores a finished reading. A nil store disables history.
func recordReading(store readingStore, source, deviceID string, result models.Result) {
	if store == nil {
		return
	}
	_, err := store.StoreReading(models.Reading{DeviceID: deviceID, Source: source, Result: result})
	if err != nil {
		logger := utils.GetLogger()
		err := xerrors.New(err)
		logger.ErrorContext(context.Background(), "failed to store reading",
			slog.String("sessionId", result.SessionID),
			slog.Any("error", err),
		)
	}
}

func newReadingsHandler(store readingStore) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.Background()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if store == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "reading history is disabled")
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		readings, err := store.RecentReadings(r.URL.Query().Get("deviceId"), limit)
		if err != nil {
			err := xerrors.New(err)
			logger.ErrorContext(ctx, "failed to load readings", slog.Any("error", err))
			writeJSONError(w, http.StatusInternalServerError, "unable to load readings")
			return
		}

		writeJSON(w, http.StatusOK, readings)
	}
}
