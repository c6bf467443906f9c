// Command chat-mock is a scripted stand-in for the upstream chat service
// (CHAT_PROVIDER=upstream) for local development.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/chat"
)

type mockResponse struct {
	Reply  string    `json:"reply"`
	Mood   chat.Mood `json:"mood"`
	Source string    `json:"source"`
}

func main() {
	var (
		port    = flag.String("port", "9098", "port to listen on")
		data    = flag.String("data", "", "optional JSON file mapping keywords to replies")
		delay   = flag.Duration("delay", 0, "artificial latency per reply, to exercise client timeouts")
		failEvery = flag.Int("fail-every", 0, "answer 503 to every Nth request (0 disables)")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	scripted := map[string]string{}
	if *data != "" {
		file, err := os.ReadFile(*data)
		if err != nil {
			logger.Fatal("read mock data", zap.Error(err))
		}
		if err := json.Unmarshal(file, &scripted); err != nil {
			logger.Fatal("parse mock data", zap.Error(err))
		}
	}

	var count atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		var req chat.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n := count.Add(1)
		if *failEvery > 0 && n%int64(*failEvery) == 0 {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		if *delay > 0 {
			select {
			case <-time.After(*delay):
			case <-r.Context().Done():
				return
			}
		}

		prompt := req.LatestUserMessage()
		reply := "Buzz buzz! " + chat.Fallback(prompt, req.Dishes)
		lower := strings.ToLower(prompt)
		for keyword, text := range scripted {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				reply = text
				break
			}
		}
		persona := chat.ParsePersona(string(req.Persona))
		if *logReqs {
			logger.Info("chat", zap.String("persona", string(persona)), zap.String("prompt", prompt))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(mockResponse{Reply: reply, Mood: persona.Classify(reply), Source: "mock"}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	addr := ":" + *port
	logger.Info("mock chat service listening", zap.String("addr", addr), zap.Int("scripted", len(scripted)))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
