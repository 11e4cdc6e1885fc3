package biz

import (
	"strings"
	"testing"
	"time"

	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/codec"
	"github.com/lk2023060901/vibe-remote/internal/transcript/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(sessionID string) (*Reconciler, *Store) {
	s := NewStore()
	s.Load(sessionID, nil)
	return NewReconciler(s, WithClock(func() time.Time { return fixedNow })), s
}

func completed(i types.MessageInfo) types.MessageInfo {
	done := i.Time.Created + 10
	i.Time.Completed = &done
	return i
}

func TestReconcileMessageUpdatedIsIdempotent(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	ev := types.MessageUpdated{Info: info("m1", types.RoleAssistant)}

	first := r.Apply(ev)
	once := s.Snapshot()
	second := r.Apply(ev)
	twice := s.Snapshot()

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Equal(t, once.Messages, twice.Messages)
	assert.Equal(t, once.Version, twice.Version)
}

func TestReconcilePartUpdatedIsIdempotent(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	ev := types.PartUpdated{MessageID: "m1", Part: tool("c1", "running")}

	r.Apply(ev)
	once := s.Snapshot()
	r.Apply(ev)

	assert.Equal(t, once, s.Snapshot())
}

func TestReconcileTextReplaceInPlace(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	r.Apply(types.MessageUpdated{Info: info("m1", types.RoleAssistant)})
	r.Apply(types.PartUpdated{MessageID: "m1", Part: types.TextPart{Text: "T1"}})

	eff := r.Apply(types.PartUpdated{MessageID: "m1", Part: types.TextPart{Text: "T2"}})

	assert.True(t, eff.Changed)
	m, _ := s.Message("m1")
	assert.Equal(t, []types.Part{types.TextPart{Text: "T2"}}, m.Parts)
}

func TestReconcileToolUpsertByID(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	r.Apply(types.MessageUpdated{Info: info("m1", types.RoleAssistant)})

	r.Apply(types.PartUpdated{MessageID: "m1", Part: tool("c1", "running")})
	r.Apply(types.PartUpdated{MessageID: "m1", Part: tool("c1", "completed")})

	m, _ := s.Message("m1")
	require.Len(t, m.Parts, 1)
	assert.Equal(t, "completed", m.Parts[0].(types.ToolPart).Status())
}

func TestReconcilePartBeforeMessage(t *testing.T) {
	r, s := newTestReconciler("ses_1")

	eff := r.Apply(types.PartUpdated{MessageID: "m1", Part: types.TextPart{Text: "hi"}})
	assert.True(t, eff.PlaceholderCreated)

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	ph := snap.Messages[0]
	assert.Equal(t, "m1", ph.Info.ID)
	assert.Equal(t, types.RoleAssistant, ph.Info.Role)
	assert.Equal(t, "ses_1", ph.Info.SessionID)
	assert.Equal(t, float64(fixedNow.UnixMilli()), ph.Info.Time.Created)
	assert.Nil(t, ph.Info.Time.Completed)
	assert.Equal(t, []types.Part{types.TextPart{Text: "hi"}}, ph.Parts)

	full := info("m1", types.RoleAssistant)
	full.Agent = "build"
	eff = r.Apply(types.MessageUpdated{Info: full})
	assert.True(t, eff.Changed)
	assert.False(t, eff.PlaceholderCreated)

	snap = s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "build", snap.Messages[0].Info.Agent)
	assert.Equal(t, float64(1), snap.Messages[0].Info.Time.Created)
	assert.Equal(t, []types.Part{types.TextPart{Text: "hi"}}, snap.Messages[0].Parts)
}

func TestReconcileOptimisticResolution(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	r.Apply(types.MessageUpdated{Info: info("m0", types.RoleAssistant)})
	require.NoError(t, s.AppendOptimistic(types.Message{
		Info:  info("pending-abc", types.RoleUser),
		Parts: []types.Part{types.TextPart{Text: "hello"}},
	}))
	r.Apply(types.MessageUpdated{Info: info("m5", types.RoleAssistant)})

	eff := r.Apply(types.MessageUpdated{Info: info("m7", types.RoleUser)})
	assert.Equal(t, 1, eff.RemovedPending)
	assert.True(t, eff.Changed)
	assert.Equal(t, []string{"m0", "m5", "m7"}, s.IDs())

	eff = r.Apply(types.MessageUpdated{Info: info("m7", types.RoleUser)})
	assert.Zero(t, eff.RemovedPending)
	assert.Equal(t, []string{"m0", "m5", "m7"}, s.IDs())
}

func TestReconcileKnownUserMessageKeepsPending(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	r.Apply(types.MessageUpdated{Info: info("m1", types.RoleUser)})
	require.NoError(t, s.AppendOptimistic(types.Message{Info: info("pending-x", types.RoleUser)}))

	eff := r.Apply(types.MessageUpdated{Info: info("m1", types.RoleUser)})

	assert.Zero(t, eff.RemovedPending)
	assert.Equal(t, []string{"m1", "pending-x"}, s.IDs())
}

func TestReconcileAssistantMessageDoesNotTouchPending(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	require.NoError(t, s.AppendOptimistic(types.Message{Info: info("pending-x", types.RoleUser)}))

	r.Apply(types.MessageUpdated{Info: info("m2", types.RoleAssistant)})

	assert.Equal(t, []string{"pending-x", "m2"}, s.IDs())
}

func TestReconcileGenerationFinished(t *testing.T) {
	tests := []struct {
		name     string
		info     types.MessageInfo
		finished bool
	}{
		{"assistant completed", completed(info("m1", types.RoleAssistant)), true},
		{"assistant streaming", info("m1", types.RoleAssistant), false},
		{"user completed", completed(info("m1", types.RoleUser)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestReconciler("ses_1")
			eff := r.Apply(types.MessageUpdated{Info: tt.info})
			assert.Equal(t, tt.finished, eff.GenerationFinished)
			assert.Equal(t, tt.finished, eff.ClearLoading)
			if tt.finished {
				assert.Equal(t, "m1", eff.FinishedMessageID)
			}
		})
	}
}

func TestReconcileMessageRemoved(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	r.Apply(types.MessageUpdated{Info: info("m1", types.RoleUser)})

	eff := r.Apply(types.MessageRemoved{MessageID: "m1"})
	assert.True(t, eff.Changed)
	assert.Zero(t, s.Len())

	before := s.Snapshot()
	eff = r.Apply(types.MessageRemoved{MessageID: "m1"})
	assert.Equal(t, Effect{}, eff)
	assert.Equal(t, before, s.Snapshot())
}

func TestReconcileEmptyOwnerIgnored(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	before := s.Snapshot()

	eff := r.Apply(types.PartUpdated{MessageID: "", Part: types.TextPart{Text: "x"}})

	assert.Equal(t, Effect{}, eff)
	assert.Equal(t, before, s.Snapshot())
}

func TestReconcileSessionEvents(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	r.Apply(types.MessageUpdated{Info: info("m1", types.RoleUser)})
	msgs := s.Snapshot().Messages

	eff := r.Apply(types.SessionUpdated{Session: types.Session{
		ID:    "ses_1",
		Cost:  &types.SessionCost{EstimatedCost: 0.25},
		Stats: &types.SessionStats{MessageCount: 1},
	}})
	assert.True(t, eff.Changed)
	snap := s.Snapshot()
	assert.Equal(t, 0.25, snap.Cost.EstimatedCost)
	assert.Equal(t, 1, snap.Stats.MessageCount)
	assert.Equal(t, msgs, snap.Messages)

	assert.Equal(t, Effect{Connected: true}, r.Apply(types.Connected{}))
	assert.Equal(t, Effect{ClearLoading: true, SessionError: "boom"}, r.Apply(types.SessionError{Message: "boom"}))
	assert.Equal(t, msgs, s.Snapshot().Messages)
}

func TestReconcileSkipsOtherSessions(t *testing.T) {
	r, s := newTestReconciler("ses_1")

	other := info("m9", types.RoleUser)
	other.SessionID = "ses_2"
	assert.Equal(t, Effect{}, r.Apply(types.MessageUpdated{Info: other}))
	assert.Equal(t, Effect{}, r.Apply(types.PartUpdated{MessageID: "m9", SessionID: "ses_2", Part: types.TextPart{Text: "x"}}))
	assert.Equal(t, Effect{}, r.Apply(types.SessionUpdated{Session: types.Session{ID: "ses_2"}}))
	assert.Zero(t, s.Len())
	assert.Nil(t, s.Snapshot().Session)
}

func TestReconcileDecodedStream(t *testing.T) {
	r, s := newTestReconciler("ses_1")
	d := codec.NewDecoder(logger.Nop())

	lines := []string{
		": keep-alive",
		`data: {"type":"server.heartbeat","properties":{}}`,
		`data: {"type":"some.future.event","properties":{"x":1}}`,
		`data: {"type":"message.updated","properties":{"info":{"id":"m1","role":"assistant","time":{"created":1}}}}`,
		`data: {not json`,
		`data: {"type":"message.updated","properties":{"info":{"id":"m2","sessionID":"ses_1","role":"assistant","time":{"created":2}}}}`,
	}

	var applied int
	for _, line := range lines {
		res := d.DecodeLine(line)
		if res.Event == nil {
			continue
		}
		applied++
		r.Apply(res.Event)
	}

	assert.Equal(t, 1, applied)
	assert.Equal(t, []string{"m2"}, s.IDs())
}

func TestPendingNamespaceDisjointFromServerIDs(t *testing.T) {
	serverIDs := []string{
		"msg_01HZX3", "ses_abc", "prt_9", "m1", "pending", "Pending-1", "xpending-1", "",
	}
	for _, id := range serverIDs {
		assert.False(t, types.IsPendingID(id), id)
	}

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := types.NewPendingID()
		assert.True(t, strings.HasPrefix(id, types.PendingPrefix))
		assert.True(t, types.IsPendingID(id))
		assert.False(t, seen[id])
		seen[id] = true
	}
}
