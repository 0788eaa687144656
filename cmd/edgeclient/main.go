// edgeclient streams pre-transcribed segments to the ingress service the way
// an on-device ASR client would, then prints everything the server pushes
// back until the final status arrives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

type segmentMessage struct {
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	Speaker     string  `json:"speaker,omitempty"`
	Start       float64 `json:"start,omitempty"`
	End         float64 `json:"end,omitempty"`
	ASRProvider string  `json:"asr_provider,omitempty"`
}

func main() {
	server := flag.String("server", "localhost:8080", "Ingress server host:port")
	uid := flag.String("uid", "edge-demo-user", "User ID")
	language := flag.String("language", "en-US", "Language code")
	intervalMs := flag.Int("interval", 800, "Milliseconds between segments")
	flag.Parse()

	u := url.URL{
		Scheme: "ws",
		Host:   *server,
		Path:   "/v1/listen",
		RawQuery: url.Values{
			"uid":      {*uid},
			"codec":    {"edge"},
			"language": {*language},
		}.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", u.String(), err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", u.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Printf("<- %s\n", data)
		}
	}()

	script := []segmentMessage{
		{Type: "transcript_segment", Text: "Hey, quick sync about the launch.", Speaker: "SPEAKER_0", Start: 0, End: 2.1, ASRProvider: "whisper-tiny"},
		{Type: "transcript_segment", Text: "Sure, the build went out this morning.", Speaker: "SPEAKER_1", Start: 2.4, End: 4.8, ASRProvider: "whisper-tiny"},
		{Type: "transcript_segment", Text: "Great, let's flip the flag on Friday then.", Speaker: "SPEAKER_0", Start: 5.0, End: 7.3, ASRProvider: "whisper-tiny"},
	}

	for i, msg := range script {
		payload, _ := json.Marshal(msg)
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Fatalf("Failed to send segment %d: %v", i, err)
		}
		log.Printf("-> %s", msg.Text)
		time.Sleep(time.Duration(*intervalMs) * time.Millisecond)
	}

	// Close the write side; the server finalizes and sends the final status.
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("Timed out waiting for final status")
	}
}
