// audioclient streams a WAV file to the ingress service in real-time-sized
// chunks over the WebSocket endpoint, printing transcript updates as the
// server flushes them.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// 100ms chunks at 16kHz 16-bit mono = 3200 bytes
const chunkIntervalMs = 100

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16-bit PCM mono)")
	server := flag.String("server", "localhost:8080", "Ingress server host:port")
	uid := flag.String("uid", "audio-demo-user", "User ID")
	language := flag.String("language", "en-US", "Language code")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)
	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}

	chunkSize := int(sampleRate) * int(numChannels) * int(bitsPerSample) / 8 * chunkIntervalMs / 1000

	u := url.URL{
		Scheme: "ws",
		Host:   *server,
		Path:   "/v1/listen",
		RawQuery: url.Values{
			"uid":         {*uid},
			"language":    {*language},
			"sample_rate": {strconv.Itoa(int(sampleRate))},
			"codec":       {"LINEAR16"},
			"channels":    {strconv.Itoa(int(numChannels))},
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

	chunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)

		if err := conn.WriteMessage(websocket.BinaryMessage, chunk[:n]); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}
		if chunkNum%10 == 0 {
			log.Printf("Sent %d chunks (%d bytes)", chunkNum, totalBytes)
		}
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	log.Printf("Streamed %d bytes in %v", totalBytes, time.Since(startTime))

	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("Timed out waiting for final status")
	}
}
