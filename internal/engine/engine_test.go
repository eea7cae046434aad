package engine

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aizen-labs/premium-bot/internal/apperr"
	"github.com/aizen-labs/premium-bot/internal/auth"
	"github.com/aizen-labs/premium-bot/internal/keystore"
	"github.com/aizen-labs/premium-bot/internal/ledger"
	"github.com/aizen-labs/premium-bot/internal/registry"
	"github.com/aizen-labs/premium-bot/internal/session"
	"github.com/aizen-labs/premium-bot/pkg/config"
)

const adminID int64 = 9000

var frozenNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeNotifier struct {
	mu        sync.Mutex
	userMsgs  map[int64][]string
	adminMsgs []string
	failFor   map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		userMsgs: make(map[int64][]string),
		failFor:  make(map[int64]bool),
	}
}

func (f *fakeNotifier) NotifyUser(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMsgs[userID] = append(f.userMsgs[userID], text)
	return nil
}

func (f *fakeNotifier) NotifyAdmins(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminMsgs = append(f.adminMsgs, text)
	return nil
}

func (f *fakeNotifier) Broadcast(_ context.Context, ids []int64, text string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var delivered, failed int
	for _, id := range ids {
		if f.failFor[id] {
			failed++
			continue
		}
		f.userMsgs[id] = append(f.userMsgs[id], text)
		delivered++
	}
	return delivered, failed
}

func (f *fakeNotifier) sentTo(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.userMsgs[userID]...)
}

func (f *fakeNotifier) adminAlerts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.adminMsgs...)
}

func newTestEngine(t *testing.T) (*Engine, *fakeNotifier) {
	t.Helper()

	notifier := newFakeNotifier()
	e := New(
		registry.NewMemoryRegistry(),
		keystore.NewMemoryKeyStore(),
		ledger.NewMemoryLedger(),
		session.NewMachine(session.NewMemoryStorage(), testLogger(), nil),
		auth.New([]int64{adminID}),
		notifier,
		config.PremiumConfig{Price: 100, Currency: "₹"},
		testLogger(),
	)
	e.now = func() time.Time { return frozenNow }

	return e, notifier
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, kind, appErr.Kind)
}

func TestEngine_FreeRedeemQuota(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	prompt, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Service / Email / Password")

	ack, err := e.SubmitDetails(ctx, user, "Netflix / alice@mail.com / hunter2")
	require.NoError(t, err)
	assert.Contains(t, ack, "#1")

	alerts := notifier.adminAlerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "@alice")
	assert.Contains(t, alerts[0], "/approve 1")

	// The single free redeem is now consumed.
	reply, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, reply, "already used your free redeem")
}

func TestEngine_PremiumUnlimitedRedeems(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	grantPremium(t, ctx, e, user)

	for i := 0; i < 3; i++ {
		_, err := e.BeginRedeem(ctx, user)
		require.NoError(t, err)

		ack, err := e.SubmitDetails(ctx, user, "Spotify / alice@mail.com / pw")
		require.NoError(t, err)
		assert.Contains(t, ack, "submitted")
	}
}

// grantPremium activates premium for id through a real generated key.
func grantPremium(t *testing.T, ctx context.Context, e *Engine, id Identity) {
	t.Helper()

	key, err := e.keys.Generate(ctx, 30, e.now())
	require.NoError(t, err)

	_, err = e.RedeemKey(ctx, id, key.Key)
	require.NoError(t, err)
}

func TestEngine_BanGate(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}
	admin := Identity{ID: adminID}

	_, err := e.Start(ctx, user)
	require.NoError(t, err)

	require.NoError(t, e.SetBan(ctx, admin, user.ID, true))

	_, err = e.Start(ctx, user)
	assertKind(t, err, apperr.KindUnauthorized)

	_, err = e.BeginRedeem(ctx, user)
	assertKind(t, err, apperr.KindUnauthorized)

	_, err = e.Status(ctx, user)
	assertKind(t, err, apperr.KindUnauthorized)

	// Unban restores access.
	require.NoError(t, e.SetBan(ctx, admin, user.ID, false))
	_, err = e.Start(ctx, user)
	require.NoError(t, err)
}

func TestEngine_SetBanUnknownUser(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	err := e.SetBan(ctx, Identity{ID: adminID}, 777, true)

	assertKind(t, err, apperr.KindNotFound)
}

func TestEngine_ApproveLifecycle(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}
	admin := Identity{ID: adminID}

	_, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	_, err = e.SubmitDetails(ctx, user, "Netflix / alice@mail.com / hunter2")
	require.NoError(t, err)

	req, err := e.Approve(ctx, admin, 1)
	require.NoError(t, err)
	assert.NotNil(t, req.ResolvedAt)

	sent := notifier.sentTo(user.ID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "approved")

	// A second decision on the same request fails either way.
	_, err = e.Approve(ctx, admin, 1)
	assertKind(t, err, apperr.KindAlreadyResolved)

	_, err = e.Reject(ctx, admin, 1, "too late")
	assertKind(t, err, apperr.KindAlreadyResolved)
}

func TestEngine_RejectNotifiesWithReason(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	_, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	_, err = e.SubmitDetails(ctx, user, "Netflix / alice@mail.com / hunter2")
	require.NoError(t, err)

	_, err = e.Reject(ctx, Identity{ID: adminID}, 1, "invalid credentials")
	require.NoError(t, err)

	sent := notifier.sentTo(user.ID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "rejected")
	assert.Contains(t, sent[0], "invalid credentials")
}

func TestEngine_ResolveUnknownRequest(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.Approve(ctx, Identity{ID: adminID}, 42)

	assertKind(t, err, apperr.KindNotFound)
}

func TestEngine_AdminAuthorization(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	outsider := Identity{ID: 100, Username: "alice"}

	_, err := e.Approve(ctx, outsider, 1)
	assertKind(t, err, apperr.KindUnauthorized)

	_, err = e.Reject(ctx, outsider, 1, "no")
	assertKind(t, err, apperr.KindUnauthorized)

	_, err = e.GenerateKey(ctx, outsider, 30)
	assertKind(t, err, apperr.KindUnauthorized)

	err = e.SetBan(ctx, outsider, 200, true)
	assertKind(t, err, apperr.KindUnauthorized)

	_, err = e.Broadcast(ctx, outsider, "hi")
	assertKind(t, err, apperr.KindUnauthorized)

	_, err = e.Pending(ctx, outsider)
	assertKind(t, err, apperr.KindUnauthorized)
}

func TestEngine_GenerateKey(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	admin := Identity{ID: adminID}

	reply, err := e.GenerateKey(ctx, admin, 30)
	require.NoError(t, err)
	assert.Contains(t, reply, "30 days")

	_, err = e.GenerateKey(ctx, admin, 0)
	assertKind(t, err, apperr.KindInvalidArgument)

	_, err = e.GenerateKey(ctx, admin, -3)
	assertKind(t, err, apperr.KindInvalidArgument)
}

func TestEngine_RedeemKey(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}
	admin := Identity{ID: adminID}

	t.Run("grants premium", func(t *testing.T) {
		reply, err := e.GenerateKey(ctx, admin, 7)
		require.NoError(t, err)
		token := extractToken(t, reply)

		msg, err := e.RedeemKey(ctx, user, token)
		require.NoError(t, err)
		assert.Contains(t, msg, "Premium activated")

		status, err := e.Status(ctx, user)
		require.NoError(t, err)
		assert.Contains(t, status, "Premium: active")
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := e.RedeemKey(ctx, user, "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF")
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("reuse", func(t *testing.T) {
		reply, err := e.GenerateKey(ctx, admin, 7)
		require.NoError(t, err)
		token := extractToken(t, reply)

		_, err = e.RedeemKey(ctx, user, token)
		require.NoError(t, err)

		_, err = e.RedeemKey(ctx, Identity{ID: 200, Username: "bob"}, token)
		assertKind(t, err, apperr.KindAlreadyUsed)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := e.RedeemKey(ctx, user, "   ")
		assertKind(t, err, apperr.KindInvalidArgument)
	})
}

func extractToken(t *testing.T, keyReply string) string {
	t.Helper()

	start := strings.Index(keyReply, "`")
	end := strings.LastIndex(keyReply, "`")
	require.True(t, start >= 0 && end > start, "key reply must contain a backticked token")

	return keyReply[start+1 : end]
}

func TestEngine_Broadcast(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t)
	admin := Identity{ID: adminID}

	for i := int64(1); i <= 10; i++ {
		_, err := e.Start(ctx, Identity{ID: i, Username: "user"})
		require.NoError(t, err)
	}
	notifier.failFor[3] = true
	notifier.failFor[7] = true

	report, err := e.Broadcast(ctx, admin, "maintenance tonight")

	require.NoError(t, err)
	assert.Equal(t, 10, report.Attempted)
	assert.Equal(t, 8, report.Delivered)
	assert.Equal(t, 2, report.Failed)
	assert.Contains(t, notifier.sentTo(1), "maintenance tonight")
	assert.Empty(t, notifier.sentTo(3))
}

func TestEngine_BroadcastEmptyText(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.Broadcast(ctx, Identity{ID: adminID}, "  ")

	assertKind(t, err, apperr.KindInvalidArgument)
}

func TestEngine_SubmitWithoutPrompt(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.SubmitDetails(ctx, Identity{ID: 100, Username: "alice"}, "Netflix / a@b.c / pw")

	assertKind(t, err, apperr.KindInvalidArgument)
}

func TestEngine_SubmitFreeFormDetails(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	_, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)

	// Details are free-form text; the prompt's format is a suggestion,
	// not a requirement.
	ack, err := e.SubmitDetails(ctx, user, "Netflix / email:x pass:y")
	require.NoError(t, err)
	assert.Contains(t, ack, "#1")

	alerts := notifier.adminAlerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Netflix / email:x pass:y")
	assert.Contains(t, alerts[0], "/approve 1")
}

func TestEngine_SubmitEmptyDetails(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	_, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)

	_, err = e.SubmitDetails(ctx, user, "   ")
	assertKind(t, err, apperr.KindInvalidArgument)

	// The conversation stays open for a corrected submission.
	ack, err := e.SubmitDetails(ctx, user, "just some text")
	require.NoError(t, err)
	assert.Contains(t, ack, "submitted")
}

func TestEngine_BeginRedeemRepeatedTap(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	first, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)

	// Tapping Redeem again while details are pending re-issues the prompt.
	second, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ack, err := e.SubmitDetails(ctx, user, "Netflix / alice@mail.com / hunter2")
	require.NoError(t, err)
	assert.Contains(t, ack, "#1")
}

func TestEngine_ConcurrentSubmitsShareOneQuota(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	_, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)

	const attempts = 8
	replies := make(chan string, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			reply, err := e.SubmitDetails(ctx, user, "Netflix / alice@mail.com / hunter2")
			if err == nil {
				replies <- reply
			}
		}()
	}
	wg.Wait()
	close(replies)

	var filed int
	for reply := range replies {
		if strings.Contains(reply, "#1") {
			filed++
		}
	}

	// Exactly one submission spends the free redeem and reaches the admins.
	assert.Equal(t, 1, filed)
	assert.Len(t, notifier.adminAlerts(), 1)
}

func TestEngine_Cancel(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	reply, err := e.Cancel(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, msgNothingToCancel, reply)

	_, err = e.BeginRedeem(ctx, user)
	require.NoError(t, err)

	reply, err = e.Cancel(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, msgCancelled, reply)

	// Cancel keeps the free redeem intact.
	prompt, err := e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Service / Email / Password")
}

func TestEngine_Pending(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	admin := Identity{ID: adminID}

	pending, err := e.Pending(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, pending)

	user := Identity{ID: 100, Username: "alice"}
	_, err = e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	_, err = e.SubmitDetails(ctx, user, "Netflix / alice@mail.com / hunter2")
	require.NoError(t, err)

	pending, err = e.Pending(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].ID)
}

func TestEngine_StatusMessage(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	user := Identity{ID: 100, Username: "alice"}

	status, err := e.Status(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, status, "Premium: not active")
	assert.Contains(t, status, "Free redeem: available")

	_, err = e.BeginRedeem(ctx, user)
	require.NoError(t, err)
	_, err = e.SubmitDetails(ctx, user, "Netflix / alice@mail.com / hunter2")
	require.NoError(t, err)

	status, err = e.Status(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, status, "Free redeem: used")
}
