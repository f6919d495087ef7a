// Command simulator drives a synthetic route against a running server: it
// feeds the motion detector gravity plus occasional bump spikes, submits
// confirmed events over HTTP, and holds a reconnecting websocket for live
// location fan-out.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roadpulse/roadpulse-backend-go/internal/detector"
	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/spatial"
)

const (
	sampleRate   = 50 // Hz
	speedMPS     = 12.0
	bumpOdds     = 0.002 // per sample
	maxBackoff   = 30 * time.Second
	gravityNoise = 0.15
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	lat := flag.Float64("lat", 37.7750, "route start latitude")
	lon := flag.Float64("lon", -122.4194, "route start longitude")
	bearing := flag.Float64("bearing", 45, "route bearing in degrees")
	duration := flag.Duration("duration", 2*time.Minute, "drive duration")
	flag.Parse()

	positions := detector.NewCachedPositionProvider(5 * time.Second)

	client := &http.Client{Timeout: 5 * time.Second}
	submit := func(e models.CandidateEvent) {
		req := models.ReportRequest{
			Latitude:        e.Latitude,
			Longitude:       e.Longitude,
			Intensity:       e.Intensity,
			CapturedAt:      e.CapturedAt,
			DetectionMethod: models.DetectionMethodSensor,
			Contributor:     "simulator",
		}
		body, _ := json.Marshal(req)
		resp, err := client.Post(*server+"/api/v1/reports", "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("Submit failed: %v", err)
			return
		}
		resp.Body.Close()
		log.Printf("Detected bump intensity %d at (%.5f, %.5f), confidence %d%%",
			e.Intensity, e.Latitude, e.Longitude, e.Confidence)
	}

	det := detector.New(detector.Config{SensorAvailable: true}, positions, submit)

	sessionID := createSession(client, *server)
	go runLiveLink(wsURL(*server), sessionID, positions)

	det.Calibrate()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(time.Second / sampleRate)
	defer ticker.Stop()
	deadline := time.Now().Add(*duration)

	curLat, curLon := *lat, *lon
	step := speedMPS / sampleRate
	var lastPoint time.Time

	for now := range ticker.C {
		if now.After(deadline) {
			break
		}

		curLat, curLon = spatial.DestinationPoint(curLat, curLon, *bearing, step)
		positions.Update(models.Position{
			Latitude:  curLat,
			Longitude: curLon,
			Speed:     speedMPS,
			Timestamp: now,
		})

		sample := models.MotionSample{
			X:          rng.NormFloat64() * gravityNoise,
			Y:          rng.NormFloat64() * gravityNoise,
			Z:          9.81 + rng.NormFloat64()*gravityNoise,
			CapturedAt: now,
		}
		if rng.Float64() < bumpOdds {
			// A bump: sharp vertical transient
			sample.Z += 4 + rng.Float64()*6
		}
		det.OnSample(sample)

		if sessionID != "" {
			postPoint(client, *server, sessionID, curLat, curLon, now, &lastPoint)
		}
	}

	if sessionID != "" {
		resp, err := client.Post(*server+"/api/v1/sessions/"+sessionID+"/complete", "application/json", nil)
		if err == nil {
			resp.Body.Close()
		}
	}
	log.Println("Drive complete")
}

// postPoint records the trip stream at 1 Hz, not at sensor rate.
func postPoint(client *http.Client, server, sessionID string, lat, lon float64, now time.Time, last *time.Time) {
	if now.Sub(*last) < time.Second {
		return
	}
	*last = now

	body, _ := json.Marshal(models.SessionPoint{
		Latitude: lat, Longitude: lon, Speed: speedMPS, CapturedAt: now,
	})
	resp, err := client.Post(server+"/api/v1/sessions/"+sessionID+"/points", "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	resp.Body.Close()
}

func createSession(client *http.Client, server string) string {
	body := bytes.NewReader([]byte(`{"userId":"simulator"}`))
	resp, err := client.Post(server+"/api/v1/sessions", "application/json", body)
	if err != nil {
		log.Printf("Session create failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	var out struct {
		Data models.Session `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ""
	}
	return out.Data.ID
}

func wsURL(server string) string {
	if len(server) > 4 && server[:5] == "https" {
		return "wss" + server[5:] + "/ws"
	}
	return "ws" + server[4:] + "/ws"
}

// runLiveLink keeps a websocket to the hub, reconnecting with bounded
// exponential backoff, and logs incoming community broadcasts.
func runLiveLink(url, sessionID string, positions *detector.CachedPositionProvider) {
	backoff := time.Second
	for {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			log.Printf("Live link dial failed, retrying in %v: %v", backoff, err)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		if sessionID != "" {
			payload, _ := json.Marshal(models.JoinPayload{SessionID: sessionID, UserID: "simulator"})
			conn.WriteJSON(models.Envelope{Type: models.MsgTypeJoin, Payload: payload})
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var env models.Envelope
				if err := conn.ReadJSON(&env); err != nil {
					return
				}
				if env.Type == models.MsgTypeSpeedBump {
					log.Printf("Community alert: %s", string(env.Payload))
				}
			}
		}()

		// Send our position to session peers once a second
		ticker := time.NewTicker(time.Second)
	send:
		for {
			select {
			case <-done:
				break send
			case <-ticker.C:
				pos, ok := positions.Current()
				if !ok {
					continue
				}
				payload, _ := json.Marshal(models.LocationPayload{
					Latitude: pos.Latitude, Longitude: pos.Longitude, Speed: pos.Speed,
				})
				if err := conn.WriteJSON(models.Envelope{Type: models.MsgTypeLocation, Payload: payload}); err != nil {
					break send
				}
			}
		}
		ticker.Stop()
		conn.Close()
		log.Println("Live link lost, reconnecting")
	}
}
