package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ppg-heartrate/db"
	"ppg-heartrate/metrics"
	"ppg-heartrate/models"
	"ppg-heartrate/ppg"
	"ppg-heartrate/utils"
	"ppg-heartrate/ws"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mdobak/go-xerrors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type apiError struct {
	Message string `json:"message"`
}

// estimateResponse is the offline result envelope plus the intermediate
// values that produced it.
type estimateResponse struct {
	models.Result
	Estimates         []ppg.BPMEstimate `json:"estimates"`
	Fused             float64           `json:"fused"`
	DominantFrequency float64           `json:"dominantFrequency"`
	PeakCount         int               `json:"peakCount"`
	Coherence         ppg.Coherence     `json:"coherence"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

func newEstimateHandler(cfg ppg.Config, store readingStore) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.Background()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var recData models.RecordData
		if err := json.NewDecoder(r.Body).Decode(&recData); err != nil {
			logger.ErrorContext(ctx, "failed to parse request body", slog.Any("error", err))
			metrics.RecordingsAnalyzed.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
			writeJSONError(w, http.StatusBadRequest, "invalid request payload")
			return
		}

		if len(recData.Frames) == 0 && recData.Packed == "" {
			metrics.RecordingsAnalyzed.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
			writeJSONError(w, http.StatusBadRequest, "no samples received")
			return
		}

		started := time.Now()

		recording, err := ppg.PrepareRecording(recData, cfg.SampleRate)
		if err != nil {
			logger.WarnContext(ctx, "rejected recording", slog.String("deviceId", recData.DeviceID), slog.Any("error", err))
			metrics.RecordingsAnalyzed.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		runCfg, err := cfg.WithOverrides(0, recording.SampleRate)
		if err != nil {
			metrics.RecordingsAnalyzed.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		report, err := ppg.AnalyzeRecordingTimed(recording.Samples, runCfg, metrics.ObserveStage)
		switch {
		case errors.Is(err, ppg.ErrInsufficientSamples):
			metrics.RecordingsAnalyzed.WithLabelValues(metrics.OutcomeInsufficientData).Inc()
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			err := xerrors.New(err)
			logger.ErrorContext(ctx, "failed to analyze recording", slog.Any("error", err))
			metrics.RecordingsAnalyzed.WithLabelValues(metrics.OutcomeProcessingError).Inc()
			writeJSONError(w, http.StatusInternalServerError, "unable to analyze recording")
			return
		}
		metrics.RecordingsAnalyzed.WithLabelValues(metrics.OutcomeResult).Inc()

		sessionID := utils.GenerateSessionID()
		result := ppg.ResultEnvelope(sessionID, report, time.Now())
		result.LatencyMs = float64(time.Since(started).Microseconds()) / 1000

		logger.InfoContext(ctx, "recording analyzed",
			slog.String("sessionId", sessionID),
			slog.String("deviceId", recData.DeviceID),
			slog.Int("samples", len(recording.Samples)),
			slog.Float64("durationSeconds", recording.Duration),
			slog.Int("bpm", result.BPM),
			slog.String("mode", result.Mode),
		)
		recordReading(store, "http", recData.DeviceID, result)

		writeJSON(w, http.StatusOK, estimateResponse{
			Result:            result,
			Estimates:         report.Estimates,
			Fused:             report.Fused,
			DominantFrequency: report.DominantFrequency,
			PeakCount:         report.PeakCount,
			Coherence:         report.Coherence,
		})
	}
}

func newHealthHandler(cfg ppg.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":             "ok",
			"sampleRate":         cfg.SampleRate,
			"measurementSeconds": cfg.MeasurementSeconds,
		})
	}
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)
	var allowOriginFunc = func(r *http.Request) bool {
		return true
	}

	cfg, err := loadEngineConfig()
	if err != nil {
		log.Fatalf("invalid engine configuration: %v", err)
	}
	log.Printf("Engine: %.0f Hz, %.0fs sessions, %.0fs quality phase\n", cfg.SampleRate, cfg.MeasurementSeconds, cfg.QualitySeconds)

	var store readingStore
	if dbPath := utils.GetEnv("PPG_DB_PATH", filepath.Join("data", "readings.db")); dbPath != "none" {
		client, err := db.NewSQLiteClient(dbPath)
		if err != nil {
			log.Printf("Reading history disabled: %v\n", err)
		} else {
			defer client.Close()
			store = client
			log.Printf("Storing readings in %s\n", dbPath)
		}
	}

	controller := newSocketController(cfg, store)

	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})

	server.OnConnect("/", func(socket socketio.Conn) error {
		socket.SetContext("")
		connURL := socket.URL()
		log.Printf("CONNECTED: %s, transport: %s, remote addr: %s\n", socket.ID(), connURL.String(), socket.RemoteAddr())
		controller.handleConnect(socket)
		return nil
	})

	server.OnEvent("/", "startSession", func(socket socketio.Conn, msg string) {
		log.Printf("startSession received from %s\n", socket.ID())
		go func() {
			defer recoverSocket(socket, "startSession")
			controller.handleStartSession(socket, msg)
		}()
	})

	server.OnEvent("/", "frame", func(socket socketio.Conn, msg string) {
		controller.handleFrames(socket, msg)
	})

	server.OnEvent("/", "cancelSession", func(socket socketio.Conn) {
		log.Printf("cancelSession received from %s\n", socket.ID())
		controller.handleCancel(socket)
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		log.Println("meet error:", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Printf("Socket disconnected - ID: %s, Reason: %s\n", s.ID(), reason)
		controller.handleDisconnect(s)
	})

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("socketio listen error: %s\n", err)
		}
	}()
	defer server.Close()

	serveHTTPS := protocol == "https"

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", server)
	mux.HandleFunc("/api/ppg/estimate", newEstimateHandler(cfg, store))
	mux.HandleFunc("/api/readings", newReadingsHandler(store))
	mux.HandleFunc("/health", newHealthHandler(cfg))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", ws.NewHandler(ws.HandlerConfig{
		Engine:        cfg,
		MaxConcurrent: utils.GetEnvInt("PPG_MAX_STREAMS", 32),
		OnResult: func(deviceID string, result models.Result) {
			recordReading(store, "ws", deviceID, result)
		},
	}))
	mux.Handle("/", http.FileServer(http.Dir("static")))

	serveHTTP(server, serveHTTPS, port, mux)
}

func recoverSocket(socket socketio.Conn, event string) {
	if r := recover(); r != nil {
		log.Printf("panic in %s for socket %s: %v\n", event, socket.ID(), r)
		socket.Emit("analysisError", apiError{Message: "internal server error during processing"})
	}
}

func serveHTTP(socketServer *socketio.Server, serveHTTPS bool, port string, handler http.Handler) {
	if handler == nil {
		handler = socketServer
	}
	if serveHTTPS {
		httpsAddr := ":" + port
		httpsServer := &http.Server{
			Addr: httpsAddr,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			Handler: handler,
		}

		certKey := utils.GetEnv("CERT_KEY")
		certFile := utils.GetEnv("CERT_FILE")
		if certKey == "" || certFile == "" {
			log.Fatal("Missing cert: set CERT_KEY and CERT_FILE")
		}

		log.Printf("Starting HTTPS server on %s\n", httpsAddr)
		if err := httpsServer.ListenAndServeTLS(certFile, certKey); err != nil {
			log.Fatalf("HTTPS server ListenAndServeTLS: %v", err)
		}
	}

	log.Printf("Starting HTTP server on port %v", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("HTTP server ListenAndServe: %v", err)
	}
}
