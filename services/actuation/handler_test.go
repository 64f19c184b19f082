package actuation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"servocode-go/bus"
	"servocode-go/services/indicator"
	"servocode-go/services/topics"
	"servocode-go/types"
)

type fakeActuator struct {
	ons, offs int
	err       error
	pulse     uint32
	enabled   bool
}

func (f *fakeActuator) ID() string { return "servo0" }
func (f *fakeActuator) TurnOn() error {
	f.ons++
	if f.err != nil {
		return f.err
	}
	f.pulse, f.enabled = 1500, true
	return nil
}
func (f *fakeActuator) TurnOff() error {
	f.offs++
	if f.err != nil {
		return f.err
	}
	f.enabled = false
	return nil
}
func (f *fakeActuator) Snapshot() types.ActuatorValue {
	return types.ActuatorValue{ID: "servo0", PulseUs: f.pulse, Enabled: f.enabled}
}

type recSignaler struct{ played []string }

func (s *recSignaler) Signal(_ context.Context, p indicator.Pattern) {
	s.played = append(s.played, p.Name)
}

type recRecorder struct {
	cmds      []Command
	errs      int
	positions int
}

func (r *recRecorder) Actuation(_ string, cmd Command, err error) {
	r.cmds = append(r.cmds, cmd)
	if err != nil {
		r.errs++
	}
}
func (r *recRecorder) Position(types.ActuatorValue) { r.positions++ }

func newHandler(act *fakeActuator) (*Handler, *recSignaler) {
	sig := &recSignaler{}
	return NewHandler(act, sig, Options{}), sig
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name   string
		params []Param
		want   Command
	}{
		{"on", []Param{{"action", "on"}}, TurnOn},
		{"off", []Param{{"action", "off"}}, TurnOff},
		{"empty", nil, Unrecognized},
		{"other key", []Param{{"foo", "bar"}}, Unrecognized},
		{"bad value", []Param{{"action", "invalid"}}, Unrecognized},
		{"case sensitive", []Param{{"action", "ON"}}, Unrecognized},
		{"first wins", []Param{{"action", "on"}, {"action", "off"}}, TurnOn},
		{"first wins even when invalid", []Param{{"action", "x"}, {"action", "on"}}, Unrecognized},
		{"skips other keys", []Param{{"foo", "bar"}, {"action", "off"}}, TurnOff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ParseCommand(tc.params))
		})
	}
}

func TestHandle_OnDrivesActuatorAndAcks(t *testing.T) {
	act := &fakeActuator{}
	h, sig := newHandler(act)

	got := h.Handle(context.Background(), []Param{{"action", "on"}})

	require.Equal(t, "/index.html", got)
	require.Equal(t, 1, act.ons)
	require.Equal(t, 0, act.offs)
	require.Equal(t, []string{"ack"}, sig.played)
}

func TestHandle_OffDrivesActuator(t *testing.T) {
	act := &fakeActuator{}
	h, sig := newHandler(act)

	require.Equal(t, "/index.html", h.Handle(context.Background(), []Param{{"action", "off"}}))
	require.Equal(t, 1, act.offs)
	require.Equal(t, []string{"ack"}, sig.played)
}

func TestHandle_UnrecognisedIsNoOp(t *testing.T) {
	for _, params := range [][]Param{
		nil,
		{{"foo", "bar"}},
		{{"action", "invalid"}},
	} {
		act := &fakeActuator{}
		h, sig := newHandler(act)

		require.Equal(t, "/index.html", h.Handle(context.Background(), params))
		require.Zero(t, act.ons)
		require.Zero(t, act.offs)
		require.Empty(t, sig.played)
	}
}

func TestHandle_DuplicateActionFirstWins(t *testing.T) {
	act := &fakeActuator{}
	h, _ := newHandler(act)

	h.Handle(context.Background(), []Param{{"action", "on"}, {"action", "off"}})

	require.Equal(t, 1, act.ons)
	require.Zero(t, act.offs)
}

func TestHandle_DriverErrorIsAbsorbed(t *testing.T) {
	act := &fakeActuator{err: errors.New("boom")}
	rec := &recRecorder{}
	sig := &recSignaler{}
	h := NewHandler(act, sig, Options{Redirect: "/done.html", Recorder: rec})

	require.Equal(t, "/done.html", h.Handle(context.Background(), []Param{{"action", "on"}}))
	require.Equal(t, 1, act.ons)
	require.Empty(t, sig.played)
	require.Equal(t, []Command{TurnOn}, rec.cmds)
	require.Equal(t, 1, rec.errs)
}

func TestHandle_RepeatedOnIsIdempotent(t *testing.T) {
	act := &fakeActuator{}
	h, _ := newHandler(act)

	for i := 0; i < 3; i++ {
		h.Handle(context.Background(), []Param{{"action", "on"}})
	}
	require.Equal(t, uint32(1500), act.Snapshot().PulseUs)
	require.True(t, act.Snapshot().Enabled)
}

func TestHandle_PublishesRetainedState(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test")
	act := &fakeActuator{}
	h := NewHandler(act, &recSignaler{}, Options{Conn: conn})

	h.Handle(context.Background(), []Param{{"action", "on"}})

	msgs := conn.Retained(topics.ActuatorValue("servo0"))
	require.Len(t, msgs, 1)
	v, ok := msgs[0].Payload.(types.ActuatorValue)
	require.True(t, ok)
	require.Equal(t, uint32(1500), v.PulseUs)
	require.True(t, v.Enabled)
}

func TestHandleCGI_ZipsParallelArrays(t *testing.T) {
	act := &fakeActuator{}
	h, _ := newHandler(act)

	got := h.HandleCGI(0, []string{"foo", "action", "action"}, []string{"bar", "off", "on"})

	require.Equal(t, "/index.html", got)
	require.Equal(t, 1, act.offs)
	require.Zero(t, act.ons)
	require.Len(t, Zip([]string{"a", "b"}, []string{"1"}), 1)
}

// lockedActuator is safe for the concurrent test; the handler's own
// serialisation is what keeps the retained value current.
type lockedActuator struct {
	mu sync.Mutex
	fakeActuator
	seq uint32
}

func (l *lockedActuator) TurnOn() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.pulse, l.enabled = l.seq, true
	return nil
}

func (l *lockedActuator) TurnOff() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.pulse, l.enabled = l.seq, false
	return nil
}

func (l *lockedActuator) Snapshot() types.ActuatorValue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return types.ActuatorValue{ID: "servo0", PulseUs: l.pulse, Enabled: l.enabled}
}

type nopSignaler struct{}

func (nopSignaler) Signal(context.Context, indicator.Pattern) {}

func TestHandle_ConcurrentRequestsLeaveLatestStateRetained(t *testing.T) {
	conn := bus.NewBus(4).NewConnection("test")
	act := &lockedActuator{}
	h := NewHandler(act, nopSignaler{}, Options{Conn: conn})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		action := "on"
		if i%2 == 1 {
			action = "off"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.HandleCGI(0, []string{"action"}, []string{action})
		}()
	}
	wg.Wait()

	msgs := conn.Retained(topics.ActuatorValue("servo0"))
	require.Len(t, msgs, 1)
	v := msgs[0].Payload.(types.ActuatorValue)
	want := act.Snapshot()
	require.Equal(t, uint32(64), want.PulseUs)
	require.Equal(t, want.PulseUs, v.PulseUs)
	require.Equal(t, want.Enabled, v.Enabled)
}
