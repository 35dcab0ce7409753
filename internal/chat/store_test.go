package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/chathub/internal/attach"
	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/ids"
	"github.com/kingrea/chathub/internal/seed"
	"github.com/kingrea/chathub/internal/sim"
	"github.com/kingrea/chathub/internal/storage"
)

var (
	alex = domain.Identity{ID: "user-1", Username: "Alex Johnson", Email: "alex@example.com", IsAuthenticated: true}
	demo = domain.Identity{ID: "user-demo", Username: "Demo", Email: "demo@example.com", IsAuthenticated: true}
)

type fixture struct {
	store *Store
	mem   *storage.Memory
	clock *sim.FakeClock
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	clock := sim.NewFakeClock(t0)
	clock.Step = time.Millisecond
	mem := storage.NewMemory()
	base := []Option{
		WithClock(clock),
		WithDelayer(sim.NoDelay{}),
		WithRandom(&sim.ScriptedRandom{Floats: []float64{0.99}}),
		WithSimulation(Simulation{Enabled: false}),
	}
	s := New(mem, seed.New(&sim.ScriptedRandom{Ints: []int{5}}), append(base, opts...)...)
	t.Cleanup(s.Close)
	return fixture{store: s, mem: mem, clock: clock}
}

func (f fixture) init(t *testing.T, id domain.Identity) {
	t.Helper()
	if err := f.store.Initialize(context.Background(), id); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func assertSorted(t *testing.T, msgs []domain.Message) {
	t.Helper()
	if !sort.SliceIsSorted(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) }) {
		t.Fatalf("messages not in ascending timestamp order: %v", messageIDs(msgs))
	}
}

func TestInitializeFallsBackToSeed(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	st := f.store.Snapshot()
	if len(st.Rooms) != 4 || len(st.Messages) != 10 || len(st.Roster) != 5 {
		t.Fatalf("unexpected seed sizes: %d rooms, %d messages, %d users", len(st.Rooms), len(st.Messages), len(st.Roster))
	}
	assertSorted(t, st.Messages)
	if st.Messages[0].ID != "msg-9" {
		t.Fatalf("oldest message should be msg-9, got %s", st.Messages[0].ID)
	}
	if st.CurrentRoomID != "general" || st.Loading {
		t.Fatalf("current=%q loading=%v", st.CurrentRoomID, st.Loading)
	}
	if !f.mem.Has(storage.KeyRooms) || !f.mem.Has(storage.KeyMessages) {
		t.Fatalf("seed collections should be mirrored to storage")
	}
}

func TestInitializeLoadsPersistedCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rooms := []domain.Room{{ID: "ops", Name: "Ops", Kind: domain.RoomPrivate}}
	msgs := []domain.Message{
		{ID: "b", RoomID: "ops", Content: "second", Timestamp: t0.Add(time.Minute)},
		{ID: "a", RoomID: "ops", Content: "first", Timestamp: t0},
	}
	if err := storage.SaveJSON(ctx, f.mem, storage.KeyRooms, rooms); err != nil {
		t.Fatal(err)
	}
	if err := storage.SaveJSON(ctx, f.mem, storage.KeyMessages, msgs); err != nil {
		t.Fatal(err)
	}
	f.init(t, demo)
	st := f.store.Snapshot()
	if len(st.Rooms) != 1 || st.CurrentRoomID != "ops" {
		t.Fatalf("expected persisted room selected, got %+v", st.Rooms)
	}
	equalIDs(t, st.Messages, "a", "b")
	if st.Messages[0].Reactions == nil {
		t.Fatalf("reactions should be normalised to an empty slice")
	}
}

func TestInitializeFallsBackOnCorruptData(t *testing.T) {
	f := newFixture(t)
	if err := f.mem.Set(context.Background(), storage.KeyRooms, []byte("{broken")); err != nil {
		t.Fatal(err)
	}
	f.init(t, demo)
	if got := len(f.store.Snapshot().Rooms); got != 4 {
		t.Fatalf("expected seed rooms after corrupt record, got %d", got)
	}
}

// unreachableStore fails every read while writes still land.
type unreachableStore struct {
	*storage.Memory
	err error
}

func (u unreachableStore) Get(context.Context, string) ([]byte, error) {
	return nil, u.err
}

func TestInitializeKeepsStoredStateWhenBackendFails(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	rooms := []byte(`[{"id":"ops","name":"Ops"}]`)
	msgs := []byte(`[{"id":"a","roomId":"ops","content":"first"}]`)
	if err := mem.Set(ctx, storage.KeyRooms, rooms); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set(ctx, storage.KeyMessages, msgs); err != nil {
		t.Fatal(err)
	}
	down := errors.New("dial tcp: connection refused")
	s := New(unreachableStore{Memory: mem, err: down}, seed.New(&sim.ScriptedRandom{Ints: []int{5}}),
		WithClock(sim.NewFakeClock(t0)),
		WithDelayer(sim.NoDelay{}),
		WithSimulation(Simulation{Enabled: false}),
	)
	t.Cleanup(s.Close)

	if err := s.Initialize(ctx, alex); !errors.Is(err, down) {
		t.Fatalf("expected backend error, got %v", err)
	}
	st := s.Snapshot()
	if len(st.Rooms) != 0 || len(st.Messages) != 0 || st.Loading {
		t.Fatalf("store should be empty and idle, got %d rooms, %d messages, loading=%v", len(st.Rooms), len(st.Messages), st.Loading)
	}
	if _, ok := s.Identity(); ok {
		t.Fatalf("identity should be dropped so a later initialize can retry")
	}
	if room, err := s.CreateRoom(ctx, "Scratch", ""); room != nil || err != nil {
		t.Fatalf("mutations should be no-ops after a failed load, got %v, %v", room, err)
	}
	for key, want := range map[string][]byte{storage.KeyRooms: rooms, storage.KeyMessages: msgs} {
		got, err := mem.Get(ctx, key)
		if err != nil || string(got) != string(want) {
			t.Fatalf("%s overwritten: %q (%v)", key, got, err)
		}
	}
}

func TestInitializeIsIdempotentForSameIdentity(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	if _, err := f.store.SendMessage(context.Background(), "hello", domain.KindText, nil); err != nil {
		t.Fatal(err)
	}
	f.init(t, alex)
	if got := len(f.store.Snapshot().Messages); got != 11 {
		t.Fatalf("second initialize should not reload, got %d messages", got)
	}
}

func TestSetIdentityNilResetsWithoutPersistingEmpty(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	if err := f.store.SetIdentity(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	st := f.store.Snapshot()
	if len(st.Rooms) != 0 || len(st.Messages) != 0 || st.CurrentRoomID != "" {
		t.Fatalf("state not reset: %+v", st)
	}
	var rooms []domain.Room
	found, err := storage.LoadJSON(context.Background(), f.mem, storage.KeyRooms, &rooms)
	if err != nil || !found || len(rooms) != 4 {
		t.Fatalf("persisted rooms should survive the reset: found=%v len=%d err=%v", found, len(rooms), err)
	}
	if _, ok := f.store.Identity(); ok {
		t.Fatalf("identity should be cleared")
	}
}

func TestSelectRoom(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	if f.store.SelectRoom("does-not-exist") {
		t.Fatalf("unknown room should report false")
	}
	if room, _ := f.store.CurrentRoom(); room.ID != "general" {
		t.Fatalf("unknown room changed selection to %s", room.ID)
	}
	if !f.store.SelectRoom("random") {
		t.Fatalf("known room should report true")
	}
	if room, _ := f.store.CurrentRoom(); room.ID != "random" {
		t.Fatalf("current room = %s, want random", room.ID)
	}
	if got := len(f.store.Snapshot().Messages); got != 10 {
		t.Fatalf("selecting a room must not filter stored messages, got %d", got)
	}
}

func TestSendMessageAppendsInOrder(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	ctx := context.Background()

	msg, err := f.store.SendMessage(ctx, "hello there", domain.KindText, nil)
	if err != nil || msg == nil {
		t.Fatalf("send: %v %v", msg, err)
	}
	if msg.RoomID != "general" || msg.UserID != "user-1" || msg.Username != "Alex Johnson" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !ids.HasPrefix(msg.ID, "msg") || msg.Edited || len(msg.Reactions) != 0 {
		t.Fatalf("unexpected message fields %+v", msg)
	}

	f.clock.Set(t0.Add(-90 * time.Minute))
	if _, err := f.store.SendMessage(ctx, "from the past", domain.KindText, nil); err != nil {
		t.Fatal(err)
	}
	f.clock.Set(t0.Add(time.Hour))
	for i := 0; i < 5; i++ {
		if _, err := f.store.SendMessage(ctx, "burst", domain.KindText, nil); err != nil {
			t.Fatal(err)
		}
	}
	st := f.store.Snapshot()
	if len(st.Messages) != 17 {
		t.Fatalf("expected 17 messages, got %d", len(st.Messages))
	}
	assertSorted(t, st.Messages)

	var stored []domain.Message
	if _, err := storage.LoadJSON(ctx, f.mem, storage.KeyMessages, &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored) != 17 {
		t.Fatalf("storage mirror has %d messages, want 17", len(stored))
	}
}

func TestSendMessageNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if msg, err := f.store.SendMessage(ctx, "hi", domain.KindText, nil); msg != nil || err != nil {
		t.Fatalf("send without identity should be a no-op, got %v %v", msg, err)
	}
	f.init(t, alex)
	if msg, err := f.store.SendMessage(ctx, "   \n\t", domain.KindText, nil); msg != nil || err != nil {
		t.Fatalf("blank send should be a no-op, got %v %v", msg, err)
	}
	if got := len(f.store.Snapshot().Messages); got != 10 {
		t.Fatalf("no-op sends changed messages: %d", got)
	}
}

func TestSendMessageWithoutRoomIsNoop(t *testing.T) {
	f := newFixture(t)
	if err := f.mem.Set(context.Background(), storage.KeyRooms, []byte("[]")); err != nil {
		t.Fatal(err)
	}
	f.init(t, alex)
	if _, ok := f.store.CurrentRoom(); ok {
		t.Fatalf("no rooms means no current room")
	}
	if msg, err := f.store.SendMessage(context.Background(), "hi", domain.KindText, nil); msg != nil || err != nil {
		t.Fatalf("send without room should be a no-op, got %v %v", msg, err)
	}
}

func TestSendMessageCopiesAttachment(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	att := &domain.Attachment{URL: "https://x/y.png", Name: "y.png", Size: 42, Type: "image/png"}
	msg, err := f.store.SendMessage(context.Background(), "Shared an image: y.png", domain.KindImage, att)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Kind != domain.KindImage || msg.FileURL != att.URL || msg.FileName != "y.png" || msg.FileSize != 42 {
		t.Fatalf("attachment not copied: %+v", msg)
	}
}

func TestSendMessageCancelledLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg, err := f.store.SendMessage(ctx, "never", domain.KindText, nil)
	if !errors.Is(err, context.Canceled) || msg != nil {
		t.Fatalf("expected context.Canceled, got %v %v", msg, err)
	}
	if got := len(f.store.Snapshot().Messages); got != 10 {
		t.Fatalf("cancelled send changed messages: %d", got)
	}
}

func TestSendInFlightDuringLogoutIsDropped(t *testing.T) {
	gate := sim.NewGateDelay()
	f := newFixture(t, WithDelayer(gate))
	f.init(t, alex)

	type result struct {
		msg *domain.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := f.store.SendMessage(context.Background(), "too late", domain.KindText, nil)
		done <- result{msg, err}
	}()
	<-gate.Entered
	if err := f.store.SetIdentity(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	gate.Release()
	res := <-done
	if !errors.Is(res.err, ErrSessionEnded) || res.msg != nil {
		t.Fatalf("expected ErrSessionEnded, got %v %v", res.msg, res.err)
	}
	if got := len(f.store.Snapshot().Messages); got != 0 {
		t.Fatalf("message applied after logout: %d messages", got)
	}

	f.init(t, alex)
	if hits := f.store.SearchMessages("too late"); len(hits) != 0 {
		t.Fatalf("dropped message was persisted: %+v", hits)
	}
}

func TestSendKeepsRoomCapturedAtCall(t *testing.T) {
	gate := sim.NewGateDelay()
	f := newFixture(t, WithDelayer(gate))
	f.init(t, alex)
	done := make(chan *domain.Message, 1)
	go func() {
		msg, _ := f.store.SendMessage(context.Background(), "sent from general", domain.KindText, nil)
		done <- msg
	}()
	<-gate.Entered
	f.store.SelectRoom("random")
	gate.Release()
	msg := <-done
	if msg == nil || msg.RoomID != "general" {
		t.Fatalf("message should land in general, got %+v", msg)
	}
}

func TestAddReactionIsUpsert(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := f.store.AddReaction(ctx, "msg-4", "👍"); err != nil {
			t.Fatal(err)
		}
	}
	var target domain.Message
	for _, m := range f.store.Snapshot().Messages {
		if m.ID == "msg-4" {
			target = m
		}
	}
	if len(target.Reactions) != 1 {
		t.Fatalf("expected exactly one reaction, got %+v", target.Reactions)
	}
	r := target.Reactions[0]
	if r.Emoji != "👍" || r.UserID != "user-1" || r.Username != "Alex Johnson" {
		t.Fatalf("unexpected reaction %+v", r)
	}
}

func TestAddReactionNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.AddReaction(ctx, "msg-1", "👍"); err != nil {
		t.Fatalf("reaction without identity should be a silent no-op: %v", err)
	}
	f.init(t, alex)
	before := f.store.Snapshot().Messages
	if err := f.store.AddReaction(ctx, "msg-unknown", "👍"); err != nil {
		t.Fatalf("unknown message should be ignored: %v", err)
	}
	if !sameSlice(before, f.store.Snapshot().Messages) {
		t.Fatalf("unknown message reaction changed state")
	}
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	ctx := context.Background()
	if err := f.store.EditMessage(ctx, "msg-1", "Edited welcome"); err != nil {
		t.Fatal(err)
	}
	var edited domain.Message
	for _, m := range f.store.RoomMessages("general") {
		if m.ID == "msg-1" {
			edited = m
		}
	}
	if edited.Content != "Edited welcome" || !edited.Edited || edited.EditedAt == nil {
		t.Fatalf("edit not applied: %+v", edited)
	}
	before := f.store.Snapshot().Messages
	if err := f.store.EditMessage(ctx, "msg-missing", "x"); err != nil {
		t.Fatal(err)
	}
	if !sameSlice(before, f.store.Snapshot().Messages) {
		t.Fatalf("unknown message edit changed state")
	}
}

func TestUploadFile(t *testing.T) {
	f := newFixture(t)
	url, err := f.store.UploadFile(context.Background(), attach.File{Name: "My Photo (1).PNG", Size: 2048})
	if err != nil {
		t.Fatal(err)
	}
	want := "https://storage.googleapis.com/workspace-chatapp/uploads/my_photo__1_.png"
	if url != want {
		t.Fatalf("url = %s, want %s", url, want)
	}
}

func TestUploadFileFailures(t *testing.T) {
	broken := newFixture(t, WithDelayer(sim.FailDelay{Err: errors.New("connection reset")}))
	if _, err := broken.store.UploadFile(context.Background(), attach.File{Name: "a.txt"}); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("transfer failure should be ErrUploadFailed, got %v", err)
	}
	flaky := newFixture(t, WithUploadFailureRate(0.5), WithRandom(&sim.ScriptedRandom{Floats: []float64{0.2}}))
	if _, err := flaky.store.UploadFile(context.Background(), attach.File{Name: "a.txt"}); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("failure roll should be ErrUploadFailed, got %v", err)
	}
	custom := newFixture(t, WithUploadBaseURL("https://files.example.com/up/"))
	url, err := custom.store.UploadFile(context.Background(), attach.File{Name: "notes.txt"})
	if err != nil || url != "https://files.example.com/up/notes.txt" {
		t.Fatalf("custom base: %s %v", url, err)
	}
}

func TestCreateRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if room, err := f.store.CreateRoom(ctx, "Ghost", "no identity"); room != nil || err != nil {
		t.Fatalf("create without identity should be a no-op, got %v %v", room, err)
	}
	f.init(t, alex)
	room, err := f.store.CreateRoom(ctx, "Design", "Design reviews")
	if err != nil || room == nil {
		t.Fatalf("create: %v %v", room, err)
	}
	if !ids.HasPrefix(room.ID, "room") || room.Kind != domain.RoomPublic || room.MemberCount != 1 || room.CreatedBy != "user-1" {
		t.Fatalf("unexpected room %+v", room)
	}
	private, err := f.store.CreateRoom(ctx, "Secret", "", WithPrivate(), WithMemberCount(0))
	if err != nil {
		t.Fatal(err)
	}
	if private.Kind != domain.RoomPrivate || private.MemberCount != 0 {
		t.Fatalf("options not applied: %+v", private)
	}
	st := f.store.Snapshot()
	if len(st.Rooms) != 6 || st.Rooms[4].ID != room.ID || st.Rooms[5].ID != private.ID {
		t.Fatalf("rooms should be appended in order, got %d rooms", len(st.Rooms))
	}
	if st.CurrentRoomID != "general" {
		t.Fatalf("creating a room must not change the selection")
	}
	var stored []domain.Room
	if _, err := storage.LoadJSON(ctx, f.mem, storage.KeyRooms, &stored); err != nil || len(stored) != 6 {
		t.Fatalf("rooms mirror has %d rooms (err %v)", len(stored), err)
	}
}

func TestSearchMessages(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	if got := f.store.SearchMessages(""); len(got) != 0 {
		t.Fatalf("empty query should match nothing, got %d", len(got))
	}
	if got := f.store.SearchMessages("   "); len(got) != 0 {
		t.Fatalf("blank query should match nothing, got %d", len(got))
	}
	debug := f.store.SearchMessages("debug")
	if len(debug) != 1 || debug[0].ID != "msg-7" {
		t.Fatalf("debug search = %v", messageIDs(debug))
	}
	if got := f.store.SearchMessages("DEBUG"); len(got) != 1 {
		t.Fatalf("search should be case-insensitive")
	}
	sarah := f.store.SearchMessages("sarah chen")
	equalIDs(t, sarah, "msg-2", "msg-6")
}

func TestRosterOrdering(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	var names []string
	for _, u := range f.store.Roster() {
		names = append(names, u.Username)
	}
	want := []string{"Alex Johnson", "David Kumar", "Sarah Chen", "Mike Rodriguez", "Emma Wilson"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("roster = %v, want %v", names, want)
	}
}

func TestLastMessageAndRoomMessages(t *testing.T) {
	f := newFixture(t)
	f.init(t, alex)
	last, ok := f.store.LastMessage("announcements")
	if !ok || last.ID != "msg-10" {
		t.Fatalf("last announcement = %+v %v", last, ok)
	}
	equalIDs(t, f.store.RoomMessages("tech-talk"), "msg-5", "msg-6")
	if _, ok := f.store.LastMessage("nowhere"); ok {
		t.Fatalf("unknown room has no last message")
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	f := newFixture(t)
	ch, cancel := f.store.Subscribe()
	f.init(t, alex)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("expected a change notification")
	}
	cancel()
	cancel()
	for range ch {
	}
	f.store.SelectRoom("random")
}

func TestUploadURL(t *testing.T) {
	cases := map[string]string{
		"report.pdf":         "report.pdf",
		"Screen Shot #2.png": "screen_shot__2.png",
		"résumé.docx":        "r_sum_.docx",
		"a-b_c.TXT":          "a-b_c.txt",
	}
	for name, want := range cases {
		if got := UploadURL("https://host/up", name); got != "https://host/up/"+want {
			t.Fatalf("UploadURL(%q) = %s", name, got)
		}
	}
}
