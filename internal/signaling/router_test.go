package signaling

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/camera"
	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/infrastructure/logging"
)

type fakeRelay struct {
	mu      sync.Mutex
	frames  map[string][][]byte
	offline map[string]bool
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{frames: map[string][][]byte{}, offline: map[string]bool{}}
}

func (f *fakeRelay) SendRawTo(id string, raw []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline[id] {
		return false
	}
	f.frames[id] = append(f.frames[id], raw)
	return true
}

func (f *fakeRelay) sent(id string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[id]
}

type fakeCameraStore struct {
	mu     sync.Mutex
	states map[string][]string
}

func newFakeCameraStore() *fakeCameraStore {
	return &fakeCameraStore{states: map[string][]string{}}
}

func (f *fakeCameraStore) UpdateWebRTC(_ context.Context, cameraID, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[cameraID] = append(f.states[cameraID], state)
	return nil
}

func (f *fakeCameraStore) last(cameraID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.states[cameraID]
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func newTestRouter() (*Router, *fakeRelay, *fakeCameraStore) {
	relay := newFakeRelay()
	store := newFakeCameraStore()
	return NewRouter(relay, store, logging.Default()), relay, store
}

func TestOfferForwardedVerbatim(t *testing.T) {
	r, relay, store := newTestRouter()
	ctx := context.Background()

	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))

	offer := []byte(`{"type":"offer", "cameraId":"cam-1",  "peerId":"viewer-1","sdp":"v=0\r\no=- 463 2 IN IP4 127.0.0.1"}`)
	r.HandleMessage(ctx, "viewer-1", offer)

	got := relay.sent("producer-1")
	if len(got) != 1 {
		t.Fatalf("producer received %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0], offer) {
		t.Errorf("offer altered in relay:\n got  %s\n want %s", got[0], offer)
	}
	if state := r.SessionState("cam-1"); state != camera.WebRTCOfferSent {
		t.Errorf("session state = %q, want %q", state, camera.WebRTCOfferSent)
	}
	if state := store.last("cam-1"); state != camera.WebRTCOfferSent {
		t.Errorf("stored state = %q, want %q", state, camera.WebRTCOfferSent)
	}
}

func TestOfferWithoutProducerDropped(t *testing.T) {
	r, relay, _ := newTestRouter()

	r.HandleMessage(context.Background(), "viewer-1",
		[]byte(`{"type":"offer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`))

	for id, frames := range relay.frames {
		if len(frames) > 0 {
			t.Errorf("peer %s received %d frames, want none", id, len(frames))
		}
	}
	if state := r.SessionState("cam-1"); state != camera.WebRTCIdle {
		t.Errorf("session state = %q, want idle", state)
	}
}

func TestAnswerForwardedToConsumer(t *testing.T) {
	r, relay, _ := newTestRouter()
	ctx := context.Background()

	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))
	r.HandleMessage(ctx, "viewer-1", []byte(`{"type":"offer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`))

	answer := []byte(`{"type":"answer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0 answer"}`)
	r.HandleMessage(ctx, "producer-1", answer)

	got := relay.sent("viewer-1")
	if len(got) != 1 {
		t.Fatalf("consumer received %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0], answer) {
		t.Errorf("answer altered in relay:\n got  %s\n want %s", got[0], answer)
	}
	if state := r.SessionState("cam-1"); state != camera.WebRTCAnswerSent {
		t.Errorf("session state = %q, want %q", state, camera.WebRTCAnswerSent)
	}
}

func TestAnswerToDepartedConsumerDropped(t *testing.T) {
	r, relay, _ := newTestRouter()
	ctx := context.Background()

	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))
	relay.offline["viewer-1"] = true

	r.HandleMessage(ctx, "producer-1",
		[]byte(`{"type":"answer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`))

	if frames := relay.sent("viewer-1"); len(frames) != 0 {
		t.Errorf("offline consumer received %d frames, want 0", len(frames))
	}
}

func TestICECandidatesRouteToOppositeParty(t *testing.T) {
	r, relay, _ := newTestRouter()
	ctx := context.Background()

	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))
	r.HandleMessage(ctx, "viewer-1", []byte(`{"type":"offer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`))

	fromConsumer := []byte(`{"type":"ice-candidate","cameraId":"cam-1","peerId":"viewer-1","candidate":"candidate:1 1 UDP"}`)
	fromProducer1 := []byte(`{"type":"ice-candidate","cameraId":"cam-1","peerId":"viewer-1","candidate":"candidate:2 1 UDP"}`)
	fromProducer2 := []byte(`{"type":"ice-candidate","cameraId":"cam-1","peerId":"viewer-1","candidate":"candidate:3 1 TCP"}`)

	r.HandleMessage(ctx, "viewer-1", fromConsumer)
	r.HandleMessage(ctx, "producer-1", fromProducer1)
	r.HandleMessage(ctx, "producer-1", fromProducer2)

	producerGot := relay.sent("producer-1")
	if len(producerGot) != 2 { // offer + one candidate
		t.Fatalf("producer received %d frames, want 2", len(producerGot))
	}
	if !bytes.Equal(producerGot[1], fromConsumer) {
		t.Errorf("consumer candidate altered: %s", producerGot[1])
	}

	viewerGot := relay.sent("viewer-1")
	if len(viewerGot) != 2 {
		t.Fatalf("viewer received %d frames, want 2", len(viewerGot))
	}
	// Candidate order must survive the relay.
	if !bytes.Equal(viewerGot[0], fromProducer1) || !bytes.Equal(viewerGot[1], fromProducer2) {
		t.Error("producer candidates reordered or altered in relay")
	}
}

func TestConnectedMarksSession(t *testing.T) {
	r, _, store := newTestRouter()
	ctx := context.Background()

	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))
	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"connected","cameraId":"cam-1"}`))

	if state := r.SessionState("cam-1"); state != camera.WebRTCConnected {
		t.Errorf("session state = %q, want %q", state, camera.WebRTCConnected)
	}
	if state := store.last("cam-1"); state != camera.WebRTCConnected {
		t.Errorf("stored state = %q, want %q", state, camera.WebRTCConnected)
	}
}

func TestProducerDisconnectResetsSession(t *testing.T) {
	r, relay, store := newTestRouter()
	ctx := context.Background()

	tok := r.Connect("producer-1")
	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))
	r.HandleMessage(ctx, "viewer-1", []byte(`{"type":"offer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`))

	r.HandleDisconnect(ctx, "producer-1", tok)

	if state := r.SessionState("cam-1"); state != camera.WebRTCIdle {
		t.Errorf("session state = %q after producer departure, want idle", state)
	}
	if state := store.last("cam-1"); state != camera.WebRTCIdle {
		t.Errorf("stored state = %q, want idle", state)
	}

	before := len(relay.sent("producer-1"))
	r.HandleMessage(ctx, "viewer-1",
		[]byte(`{"type":"offer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`))
	if after := len(relay.sent("producer-1")); after != before {
		t.Error("offer delivered to departed producer")
	}
}

func TestProducerReconnectSurvivesStaleDisconnect(t *testing.T) {
	r, relay, _ := newTestRouter()
	ctx := context.Background()

	oldTok := r.Connect("producer-1")
	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))

	// The node reconnects under the same identity and registers again
	// before the replaced socket's close handler has run.
	newTok := r.Connect("producer-1")
	r.HandleMessage(ctx, "producer-1", []byte(`{"type":"register","cameraId":"cam-1"}`))

	// The replaced socket closes late. Its token is superseded, so the
	// fresh binding must survive.
	r.HandleDisconnect(ctx, "producer-1", oldTok)

	offer := []byte(`{"type":"offer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`)
	r.HandleMessage(ctx, "viewer-1", offer)
	if frames := relay.sent("producer-1"); len(frames) != 1 {
		t.Fatalf("producer received %d frames after stale disconnect, want 1", len(frames))
	}

	// The live socket's own disconnect still releases the binding.
	r.HandleDisconnect(ctx, "producer-1", newTok)
	if state := r.SessionState("cam-1"); state != camera.WebRTCIdle {
		t.Errorf("session state = %q after live disconnect, want idle", state)
	}
	r.HandleMessage(ctx, "viewer-1", offer)
	if frames := relay.sent("producer-1"); len(frames) != 1 {
		t.Error("offer delivered to departed producer")
	}
}

func TestRegisterRebindsProducer(t *testing.T) {
	r, relay, _ := newTestRouter()
	ctx := context.Background()

	r.HandleMessage(ctx, "producer-old", []byte(`{"type":"register","cameraId":"cam-1"}`))
	r.HandleMessage(ctx, "producer-new", []byte(`{"type":"register","cameraId":"cam-1"}`))

	offer := []byte(`{"type":"offer","cameraId":"cam-1","peerId":"viewer-1","sdp":"v=0"}`)
	r.HandleMessage(ctx, "viewer-1", offer)

	if frames := relay.sent("producer-old"); len(frames) != 0 {
		t.Errorf("replaced producer received %d frames, want 0", len(frames))
	}
	if frames := relay.sent("producer-new"); len(frames) != 1 {
		t.Errorf("current producer received %d frames, want 1", len(frames))
	}
}

func TestMalformedFramesDropped(t *testing.T) {
	r, relay, _ := newTestRouter()
	ctx := context.Background()

	r.HandleMessage(ctx, "peer-1", []byte(`not json at all`))
	r.HandleMessage(ctx, "peer-1", []byte(`{"type":"teleport","cameraId":"cam-1"}`))
	r.HandleMessage(ctx, "peer-1", []byte(`{"type":"register"}`))

	for id, frames := range relay.frames {
		if len(frames) > 0 {
			t.Errorf("peer %s received %d frames from malformed input", id, len(frames))
		}
	}
	if n := r.SessionCount(); n != 0 {
		t.Errorf("SessionCount() = %d, want 0", n)
	}
}
