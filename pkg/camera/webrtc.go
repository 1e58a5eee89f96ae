package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-proximity/internal/log"
)

// WebRTCConfig configures a remote camera published through a GStreamer
// webrtcsink signalling server.
type WebRTCConfig struct {
	SignallingURL  string        // e.g. ws://192.168.1.20:8443
	ProducerName   string        // meta.name of the producer; empty picks the first one
	ConnectTimeout time.Duration // Signalling handshake and first track
	FrameTimeout   time.Duration // Next gives up after this long without a frame
	DecodeInterval time.Duration // Minimum time between ffmpeg decodes
	DecodeTimeout  time.Duration // ffmpeg is killed after this long
	MaxBufferBytes int           // H264 kept since the last keyframe; 0 is unbounded
	FFmpegPath     string
}

// DefaultWebRTCConfig returns defaults for a camera at host.
func DefaultWebRTCConfig(host string) WebRTCConfig {
	return WebRTCConfig{
		SignallingURL:  fmt.Sprintf("ws://%s:8443", host),
		ConnectTimeout: 15 * time.Second,
		FrameTimeout:   5 * time.Second,
		DecodeInterval: 100 * time.Millisecond,
		DecodeTimeout:  2 * time.Second,
		MaxBufferBytes: 1 << 20,
		FFmpegPath:     "ffmpeg",
	}
}

// WebRTCSource receives an H264 track over WebRTC and decodes it to frames
// with ffmpeg.
type WebRTCSource struct {
	cfg WebRTCConfig

	ws   *websocket.Conn
	wsMu sync.Mutex
	pc   *webrtc.PeerConnection

	peerID     string
	producerID string

	sessionMu sync.Mutex
	sessionID string

	frames    chan image.Image
	trackUp   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// signalMessage covers every message type the signalling server sends.
type signalMessage struct {
	Type      string `json:"type"`
	PeerID    string `json:"peerId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Producers []struct {
		ID   string            `json:"id"`
		Meta map[string]string `json:"meta"`
	} `json:"producers,omitempty"`
	SDP *struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"sdp,omitempty"`
	ICE *struct {
		Candidate     string  `json:"candidate"`
		SDPMid        *string `json:"sdpMid"`
		SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	} `json:"ice,omitempty"`
}

// DialWebRTC connects to the signalling server, negotiates a receive-only
// video session and waits for the first track.
func DialWebRTC(cfg WebRTCConfig) (*WebRTCSource, error) {
	s := &WebRTCSource{
		cfg:     cfg,
		frames:  make(chan image.Image, 1),
		trackUp: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	ws, _, err := dialer.Dial(cfg.SignallingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("signalling connect failed: %w", err)
	}
	s.ws = ws

	if err := s.handshake(); err != nil {
		s.Close()
		return nil, err
	}

	go s.handleSignalling()

	select {
	case <-s.trackUp:
		log.Info("webrtc video connected", "producer", s.producerID)
	case <-time.After(cfg.ConnectTimeout):
		s.Close()
		return nil, fmt.Errorf("timeout waiting for video track")
	}
	return s, nil
}

func (s *WebRTCSource) handshake() error {
	welcome, err := s.readMessage(s.cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("welcome failed: %w", err)
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", welcome.Type)
	}
	s.peerID = welcome.PeerID

	if err := s.send(map[string]string{"type": "list"}); err != nil {
		return fmt.Errorf("list producers: %w", err)
	}
	list, err := s.readMessage(s.cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("list producers: %w", err)
	}
	for _, p := range list.Producers {
		if s.cfg.ProducerName == "" || p.Meta["name"] == s.cfg.ProducerName {
			s.producerID = p.ID
			break
		}
	}
	if s.producerID == "" {
		return fmt.Errorf("producer %q not found in %d producers", s.cfg.ProducerName, len(list.Producers))
	}

	if err := s.createPeerConnection(); err != nil {
		return fmt.Errorf("peer connection failed: %w", err)
	}

	if err := s.send(map[string]string{"type": "startSession", "peerId": s.producerID}); err != nil {
		return fmt.Errorf("start session failed: %w", err)
	}
	return nil
}

func (s *WebRTCSource) readMessage(timeout time.Duration) (signalMessage, error) {
	var msg signalMessage
	s.ws.SetReadDeadline(time.Now().Add(timeout))
	defer s.ws.SetReadDeadline(time.Time{})
	if err := s.ws.ReadJSON(&msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func (s *WebRTCSource) send(v any) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *WebRTCSource) createPeerConnection() error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	s.pc = pc

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info("webrtc track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go s.handleVideoTrack(track)
		}
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			s.sendICECandidate(c)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("webrtc connection state", "state", state.String())
		if state == webrtc.PeerConnectionStateFailed {
			s.Close()
		}
	})
	return nil
}

func (s *WebRTCSource) handleSignalling() {
	for {
		var msg signalMessage
		if err := s.ws.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				log.Warn("webrtc signalling closed", "error", err)
				s.Close()
			}
			return
		}

		switch msg.Type {
		case "sessionStarted":
			s.sessionMu.Lock()
			s.sessionID = msg.SessionID
			s.sessionMu.Unlock()
		case "peer":
			s.handlePeerMessage(msg)
		case "endSession":
			s.Close()
			return
		}
	}
}

func (s *WebRTCSource) handlePeerMessage(msg signalMessage) {
	if msg.SDP != nil && msg.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.SDP.SDP}
		if err := s.pc.SetRemoteDescription(offer); err != nil {
			log.Warn("webrtc set remote description", "error", err)
			return
		}
		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			log.Warn("webrtc create answer", "error", err)
			return
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			log.Warn("webrtc set local description", "error", err)
			return
		}
		s.sendPeer(map[string]any{"sdp": map[string]string{"type": answer.Type.String(), "sdp": answer.SDP}})
	}

	if msg.ICE != nil {
		if err := s.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     msg.ICE.Candidate,
			SDPMid:        msg.ICE.SDPMid,
			SDPMLineIndex: msg.ICE.SDPMLineIndex,
		}); err != nil {
			log.Debug("webrtc add ice candidate", "error", err)
		}
	}
}

func (s *WebRTCSource) sendPeer(payload map[string]any) {
	s.sessionMu.Lock()
	sessionID := s.sessionID
	s.sessionMu.Unlock()
	if sessionID == "" {
		return
	}

	payload["type"] = "peer"
	payload["sessionId"] = sessionID
	if err := s.send(payload); err != nil {
		log.Debug("webrtc send peer message", "error", err)
	}
}

func (s *WebRTCSource) sendICECandidate(c *webrtc.ICECandidate) {
	cand := c.ToJSON()
	s.sendPeer(map[string]any{"ice": map[string]any{
		"candidate":     cand.Candidate,
		"sdpMid":        cand.SDPMid,
		"sdpMLineIndex": cand.SDPMLineIndex,
	}})
}

// handleVideoTrack feeds RTP packets into an assembler and decodes the
// buffered stream at most once per DecodeInterval.
func (s *WebRTCSource) handleVideoTrack(track *webrtc.TrackRemote) {
	select {
	case s.trackUp <- struct{}{}:
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	asm := h264Assembler{limit: s.cfg.MaxBufferBytes}
	lastDecode := time.Now()
	overflows := 0

	for {
		select {
		case <-s.done:
			return
		default:
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			log.Debug("webrtc track ended", "error", err)
			s.Close()
			return
		}

		ready := asm.Push(pkt)
		if asm.overflows != overflows {
			overflows = asm.overflows
			log.Warn("webrtc buffer full, waiting for keyframe", "limit", s.cfg.MaxBufferBytes, "overflows", overflows)
		}
		if ready && time.Since(lastDecode) >= s.cfg.DecodeInterval {
			lastDecode = time.Now()
			if img, err := s.decode(ctx, asm.Bytes()); err == nil {
				s.publish(img)
			} else {
				log.Debug("webrtc decode", "error", err)
			}
		}
	}
}

// h264Assembler depacketises H264 RTP into an Annex-B buffer that always
// starts at the most recent keyframe. When limit is set and the buffer would
// grow past it, everything is dropped until the next keyframe.
type h264Assembler struct {
	depacketizer codecs.H264Packet
	stream       bytes.Buffer
	haveKeyframe bool
	limit        int
	overflows    int
}

// Push adds one packet. It returns true when the packet ends an access unit
// and the buffer is decodable.
func (a *h264Assembler) Push(pkt *rtp.Packet) bool {
	nal, err := a.depacketizer.Unmarshal(pkt.Payload)
	if err != nil || len(nal) == 0 {
		return false
	}

	if startsKeyframe(nal) {
		a.stream.Reset()
		a.haveKeyframe = true
	}
	if !a.haveKeyframe {
		return false
	}
	if a.limit > 0 && !startsKeyframe(nal) && a.stream.Len()+len(nal) > a.limit {
		a.stream.Reset()
		a.haveKeyframe = false
		a.overflows++
		return false
	}
	a.stream.Write(nal)
	return pkt.Marker
}

// Bytes returns the buffered Annex-B stream.
func (a *h264Assembler) Bytes() []byte {
	return a.stream.Bytes()
}

// startsKeyframe reports whether an Annex-B chunk carries an SPS or IDR NAL.
func startsKeyframe(annexB []byte) bool {
	for i := 0; i+3 < len(annexB); i++ {
		if annexB[i] == 0 && annexB[i+1] == 0 && annexB[i+2] == 1 {
			switch annexB[i+3] & 0x1F {
			case 5, 7: // IDR slice, SPS
				return true
			}
		}
	}
	return false
}

// decode pipes the H264 buffer through ffmpeg and keeps the last JPEG it emits.
func (s *WebRTCSource) decode(ctx context.Context, h264 []byte) (image.Image, error) {
	if s.cfg.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DecodeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.cfg.FFmpegPath,
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(h264)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.WaitDelay = 500 * time.Millisecond

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return lastJPEG(stdout.Bytes())
}

// lastJPEG decodes the final image of a concatenated MJPEG stream.
func lastJPEG(stream []byte) (image.Image, error) {
	i := bytes.LastIndex(stream, []byte{0xFF, 0xD8, 0xFF})
	if i < 0 {
		return nil, fmt.Errorf("no JPEG in decoder output")
	}
	return jpeg.Decode(bytes.NewReader(stream[i:]))
}

// publish replaces any unread frame with img.
func (s *WebRTCSource) publish(img image.Image) {
	for {
		select {
		case s.frames <- img:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// Next waits for the next decoded frame.
func (s *WebRTCSource) Next() (image.Image, error) {
	select {
	case img := <-s.frames:
		return img, nil
	case <-s.done:
		return nil, ErrEndOfStream
	case <-time.After(s.cfg.FrameTimeout):
		return nil, fmt.Errorf("%w: no frame within %v", ErrEndOfStream, s.cfg.FrameTimeout)
	}
}

// Close tears down the peer connection and signalling socket.
func (s *WebRTCSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.pc != nil {
			s.pc.Close()
		}
		if s.ws != nil {
			s.ws.Close()
		}
	})
	return nil
}
