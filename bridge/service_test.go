package bridge_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tarquiniy/telegram-auth-bridge/bridge"
	"github.com/Tarquiniy/telegram-auth-bridge/bridge/repofakes"
	"github.com/Tarquiniy/telegram-auth-bridge/bridge/sessionrepo"
	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
	"github.com/Tarquiniy/telegram-auth-bridge/telegram"
)

type stubVerifier struct {
	configured bool
	valid      bool
}

func (v stubVerifier) Configured() bool              { return v.configured }
func (v stubVerifier) Verify(map[string]string) bool { return v.valid }

type stubIssuer struct {
	link       string
	lastEmail  string
	lastTarget string
	calls      int
}

func (i *stubIssuer) GenerateLink(_ context.Context, email, redirectTo string) string {
	i.calls++
	i.lastEmail = email
	i.lastTarget = redirectTo
	return i.link
}

type stubNotifier struct {
	configured bool
	messages   []string
	chatIDs    []int64
}

func (n *stubNotifier) Configured() bool { return n.configured }

func (n *stubNotifier) SendMessage(_ context.Context, chatID int64, text string) error {
	n.chatIDs = append(n.chatIDs, chatID)
	n.messages = append(n.messages, text)
	return nil
}

type testConfig struct {
	botUsername string
	ttl         time.Duration
}

func (c testConfig) GetBotToken() string      { return "test-token" }
func (c testConfig) GetBotUsername() string   { return c.botUsername }
func (c testConfig) GetWebhookSecret() string { return "" }
func (c testConfig) GetIdentityDomain() string {
	return "telegram.local"
}
func (c testConfig) GetLoginRedirectURL() string { return "https://site.example.com" }
func (c testConfig) GetTicketTTL() time.Duration {
	if c.ttl == 0 {
		return 10 * time.Minute
	}
	return c.ttl
}

type serviceFixture struct {
	service  *bridge.Service
	sessions *repofakes.FakeSessionRepo
	profiles *repofakes.FakeProfileRepo
	issuer   *stubIssuer
	notifier *stubNotifier
	now      time.Time
}

type fixtureOption func(*fixtureSettings)

type fixtureSettings struct {
	verifier bridge.SignatureVerifier
	issuer   *stubIssuer
	noStore  bool
	noIssuer bool
	ttl      time.Duration
	username string
}

func withVerifier(v bridge.SignatureVerifier) fixtureOption {
	return func(s *fixtureSettings) { s.verifier = v }
}

func withIssuedLink(link string) fixtureOption {
	return func(s *fixtureSettings) { s.issuer = &stubIssuer{link: link} }
}

func withoutStore() fixtureOption {
	return func(s *fixtureSettings) { s.noStore = true }
}

func withoutIssuer() fixtureOption {
	return func(s *fixtureSettings) { s.noIssuer = true }
}

func withTicketTTL(ttl time.Duration) fixtureOption {
	return func(s *fixtureSettings) { s.ttl = ttl }
}

func withBotUsername(name string) fixtureOption {
	return func(s *fixtureSettings) { s.username = name }
}

func newServiceFixture(t *testing.T, options ...fixtureOption) *serviceFixture {
	t.Helper()

	settings := &fixtureSettings{
		verifier: stubVerifier{configured: true, valid: true},
		issuer:   &stubIssuer{link: "https://provider.example.com/verify?token=abc"},
		username: "bridge_bot",
	}
	for _, opt := range options {
		opt(settings)
	}

	f := &serviceFixture{
		sessions: repofakes.NewFakeSessionRepo(),
		profiles: repofakes.NewFakeProfileRepo(),
		issuer:   settings.issuer,
		notifier: &stubNotifier{configured: true},
		now:      time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
	}

	repos := bridge.Repos{Sessions: f.sessions, Profiles: f.profiles}
	if settings.noStore {
		repos = bridge.Repos{}
	}
	var issuer bridge.LinkIssuer
	if !settings.noIssuer {
		issuer = f.issuer
	}

	service, err := bridge.NewService(
		repos,
		settings.verifier,
		issuer,
		f.notifier,
		testConfig{botUsername: settings.username, ttl: settings.ttl},
		bridge.WithNowTime(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.service = service
	return f
}

func startUpdate(telegramID int64, nonce string) *telegram.Update {
	text := "/start"
	if nonce != "" {
		text = "/start " + nonce
	}
	return &telegram.Update{
		UpdateID: 1001,
		Message: &telegram.Message{
			MessageID: 7,
			From:      &telegram.User{ID: telegramID, FirstName: "Ada", Username: "ada"},
			Chat:      &telegram.Chat{ID: telegramID},
			Text:      text,
		},
	}
}

func TestNewService_Validation(t *testing.T) {
	t.Run("requires verifier", func(t *testing.T) {
		_, err := bridge.NewService(bridge.Repos{}, nil, nil, nil, testConfig{})
		require.Error(t, err)
	})

	t.Run("requires config", func(t *testing.T) {
		_, err := bridge.NewService(bridge.Repos{}, stubVerifier{}, nil, nil, nil)
		require.Error(t, err)
	})

	t.Run("issuer notifier and repos are optional", func(t *testing.T) {
		_, err := bridge.NewService(bridge.Repos{}, stubVerifier{}, nil, nil, testConfig{})
		require.NoError(t, err)
	})
}

func TestService_Start(t *testing.T) {
	t.Run("issues unique pairs", func(t *testing.T) {
		f := newServiceFixture(t)

		first, err := f.service.Start(context.Background())
		require.NoError(t, err)
		second, err := f.service.Start(context.Background())
		require.NoError(t, err)

		require.NotEmpty(t, first.Ticket)
		require.NotEmpty(t, first.Nonce)
		require.NotEqual(t, first.Ticket, second.Ticket)
		require.NotEqual(t, first.Nonce, second.Nonce)
		require.NotContains(t, first.DeepLink, first.Ticket)
	})

	t.Run("deep link carries the nonce", func(t *testing.T) {
		f := newServiceFixture(t, withBotUsername("bridge_bot"))

		result, err := f.service.Start(context.Background())
		require.NoError(t, err)
		require.Equal(t, telegram.DeepLink("bridge_bot", result.Nonce), result.DeepLink)
		require.True(t, result.Inserted)
		require.Empty(t, result.Error)
	})

	t.Run("persists a pending session", func(t *testing.T) {
		f := newServiceFixture(t)

		result, err := f.service.Start(context.Background())
		require.NoError(t, err)

		session, err := f.sessions.GetByTicket(context.Background(), result.Ticket)
		require.NoError(t, err)
		require.Equal(t, result.Nonce, session.Nonce)
		require.False(t, session.Resolved())
	})

	t.Run("store unavailable still returns the pair", func(t *testing.T) {
		f := newServiceFixture(t, withoutStore())

		result, err := f.service.Start(context.Background())
		require.NoError(t, err)
		require.NotEmpty(t, result.Ticket)
		require.NotEmpty(t, result.DeepLink)
		require.False(t, result.Inserted)
		require.NotEmpty(t, result.Error)
	})

	t.Run("insert failure is reported not raised", func(t *testing.T) {
		f := newServiceFixture(t)
		f.sessions.InsertErr = autherrors.ErrInternal

		result, err := f.service.Start(context.Background())
		require.NoError(t, err)
		require.False(t, result.Inserted)
		require.NotEmpty(t, result.Error)
	})
}

func TestService_HandleUpdate(t *testing.T) {
	t.Run("resolves a pending session", func(t *testing.T) {
		f := newServiceFixture(t)
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)

		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		session, err := f.sessions.GetByTicket(context.Background(), pair.Ticket)
		require.NoError(t, err)
		require.True(t, session.Resolved())
		require.Equal(t, int64(42), session.TelegramID)
		require.Equal(t, f.issuer.link, session.ActionLink)
		require.Contains(t, session.Payload, "/start")

		require.Equal(t, "tg_42@telegram.local", f.issuer.lastEmail)
		require.Equal(t, "https://site.example.com", f.issuer.lastTarget)
	})

	t.Run("notifies the chat when the link is ready", func(t *testing.T) {
		f := newServiceFixture(t)
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)

		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		require.Len(t, f.notifier.messages, 1)
		require.Equal(t, int64(42), f.notifier.chatIDs[0])
		require.Contains(t, f.notifier.messages[0], "ready")
	})

	t.Run("ignores non start messages", func(t *testing.T) {
		f := newServiceFixture(t)
		update := startUpdate(42, "")
		update.Message.Text = "hello there"

		f.service.HandleUpdate(context.Background(), update)

		require.Zero(t, f.issuer.calls)
		require.Empty(t, f.sessions.Orphans())
		require.Empty(t, f.notifier.messages)
	})

	t.Run("unknown nonce records an orphan", func(t *testing.T) {
		f := newServiceFixture(t)

		f.service.HandleUpdate(context.Background(), startUpdate(42, "no-such-nonce"))

		orphans := f.sessions.Orphans()
		require.Len(t, orphans, 1)
		require.Equal(t, "no-such-nonce", orphans[0].Nonce)
		require.Equal(t, int64(42), orphans[0].TelegramID)
		require.Empty(t, orphans[0].Ticket)
		require.Zero(t, f.issuer.calls)

		require.Len(t, f.notifier.messages, 1)
		require.NotContains(t, f.notifier.messages[0], "ready")
	})

	t.Run("bare start records an orphan", func(t *testing.T) {
		f := newServiceFixture(t)

		f.service.HandleUpdate(context.Background(), startUpdate(42, ""))

		require.Len(t, f.sessions.Orphans(), 1)
		require.Zero(t, f.issuer.calls)
	})

	t.Run("expired pending ticket is treated as unknown", func(t *testing.T) {
		f := newServiceFixture(t, withTicketTTL(10*time.Minute))
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)

		f.now = f.now.Add(11 * time.Minute)
		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		require.Len(t, f.sessions.Orphans(), 1)
		session, err := f.sessions.GetByTicket(context.Background(), pair.Ticket)
		require.NoError(t, err)
		require.False(t, session.Resolved())
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		f := newServiceFixture(t)
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)

		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))
		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		require.Equal(t, 1, f.sessions.TicketCount())
		session, err := f.sessions.GetByTicket(context.Background(), pair.Ticket)
		require.NoError(t, err)
		require.True(t, session.Resolved())
	})

	t.Run("issuance failure still resolves nothing but records the attempt", func(t *testing.T) {
		f := newServiceFixture(t, withIssuedLink(""))
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)

		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		session, err := f.sessions.GetByTicket(context.Background(), pair.Ticket)
		require.NoError(t, err)
		require.False(t, session.Resolved())
		require.Equal(t, int64(42), session.TelegramID)

		require.Len(t, f.notifier.messages, 1)
		require.NotContains(t, f.notifier.messages[0], "ready")
	})

	t.Run("missing store drops the update", func(t *testing.T) {
		f := newServiceFixture(t, withoutStore())

		f.service.HandleUpdate(context.Background(), startUpdate(42, "anything"))

		require.Zero(t, f.issuer.calls)
		require.Empty(t, f.notifier.messages)
	})

	t.Run("missing issuer records the attempt without a link", func(t *testing.T) {
		f := newServiceFixture(t, withoutIssuer())
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)

		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		session, err := f.sessions.GetByTicket(context.Background(), pair.Ticket)
		require.NoError(t, err)
		require.False(t, session.Resolved())
		require.Equal(t, int64(42), session.TelegramID)
	})
}

// The in-memory store must agree with the durable store on orphan
// visibility: a nonce that never had a ticket stays unknown however many
// times the platform redelivers it.
func TestService_HandleUpdate_InMemoryStore(t *testing.T) {
	newInMemoryService := func(t *testing.T, now *time.Time) (*bridge.Service, *sessionrepo.InMemory, *stubIssuer, *stubNotifier) {
		t.Helper()
		sessions := sessionrepo.NewInMemory(time.Hour)
		issuer := &stubIssuer{link: "https://provider.example.com/verify?token=abc"}
		notifier := &stubNotifier{configured: true}
		service, err := bridge.NewService(
			bridge.Repos{Sessions: sessions},
			stubVerifier{configured: true, valid: true},
			issuer,
			notifier,
			testConfig{botUsername: "bridge_bot", ttl: 10 * time.Minute},
			bridge.WithNowTime(func() time.Time { return *now }),
		)
		require.NoError(t, err)
		return service, sessions, issuer, notifier
	}

	t.Run("redelivered unknown nonce stays unknown", func(t *testing.T) {
		now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
		service, sessions, issuer, notifier := newInMemoryService(t, &now)
		ctx := context.Background()

		service.HandleUpdate(ctx, startUpdate(42, "never-issued"))
		service.HandleUpdate(ctx, startUpdate(42, "never-issued"))

		require.Zero(t, issuer.calls)
		require.Len(t, notifier.messages, 2)
		for _, msg := range notifier.messages {
			require.NotContains(t, msg, "ready")
		}
		_, err := sessions.GetByNonce(ctx, "never-issued")
		require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
	})

	t.Run("expired pending nonce does not resolve on redelivery", func(t *testing.T) {
		now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
		service, _, issuer, _ := newInMemoryService(t, &now)
		ctx := context.Background()

		pair, err := service.Start(ctx)
		require.NoError(t, err)

		now = now.Add(11 * time.Minute)
		service.HandleUpdate(ctx, startUpdate(42, pair.Nonce))
		service.HandleUpdate(ctx, startUpdate(42, pair.Nonce))

		require.Zero(t, issuer.calls)
		require.Nil(t, service.Status(ctx, pair.Ticket).ActionLink)
	})
}

func TestService_Status(t *testing.T) {
	t.Run("pending ticket reads as null", func(t *testing.T) {
		f := newServiceFixture(t)
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)

		require.Nil(t, f.service.Status(context.Background(), pair.Ticket).ActionLink)
	})

	t.Run("unknown ticket reads as null", func(t *testing.T) {
		f := newServiceFixture(t)
		require.Nil(t, f.service.Status(context.Background(), "missing").ActionLink)
	})

	t.Run("empty ticket reads as null", func(t *testing.T) {
		f := newServiceFixture(t)
		require.Nil(t, f.service.Status(context.Background(), "").ActionLink)
	})

	t.Run("missing store reads as null", func(t *testing.T) {
		f := newServiceFixture(t, withoutStore())
		require.Nil(t, f.service.Status(context.Background(), "any").ActionLink)
	})

	t.Run("resolved ticket returns the link", func(t *testing.T) {
		f := newServiceFixture(t)
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)
		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		result := f.service.Status(context.Background(), pair.Ticket)
		require.NotNil(t, result.ActionLink)
		require.Equal(t, f.issuer.link, *result.ActionLink)
	})

	t.Run("read does not consume the row", func(t *testing.T) {
		f := newServiceFixture(t)
		pair, err := f.service.Start(context.Background())
		require.NoError(t, err)
		f.service.HandleUpdate(context.Background(), startUpdate(42, pair.Nonce))

		first := f.service.Status(context.Background(), pair.Ticket)
		second := f.service.Status(context.Background(), pair.Ticket)
		require.NotNil(t, first.ActionLink)
		require.NotNil(t, second.ActionLink)
		require.Equal(t, *first.ActionLink, *second.ActionLink)
	})

	t.Run("storage error reads as null", func(t *testing.T) {
		f := newServiceFixture(t)
		f.sessions.GetErr = autherrors.ErrInternal
		require.Nil(t, f.service.Status(context.Background(), "any").ActionLink)
	})
}

func TestService_VerifyWidget(t *testing.T) {
	validClaims := map[string]string{
		telegram.ClaimID:        "42",
		telegram.ClaimFirstName: "Ada",
		telegram.ClaimLastName:  "Lovelace",
		telegram.ClaimUsername:  "ada",
		telegram.ClaimAuthDate:  "1700000000",
		telegram.ClaimHash:      "irrelevant-for-stub",
	}

	t.Run("issues a link for valid claims", func(t *testing.T) {
		f := newServiceFixture(t)

		result, err := f.service.VerifyWidget(context.Background(), validClaims)
		require.NoError(t, err)
		require.Equal(t, f.issuer.link, result.ActionLink)
		require.Equal(t, "tg_42@telegram.local", f.issuer.lastEmail)
	})

	t.Run("projects a profile", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.VerifyWidget(context.Background(), validClaims)
		require.NoError(t, err)

		profile, ok := f.profiles.Get("tg_42@telegram.local")
		require.True(t, ok)
		require.Equal(t, int64(42), profile.TelegramID)
		require.Equal(t, "Ada Lovelace", profile.Name)
		require.Equal(t, "ada", profile.Username)
	})

	t.Run("profile upsert failure does not block login", func(t *testing.T) {
		f := newServiceFixture(t)
		f.profiles.UpsertErr = autherrors.ErrInternal

		result, err := f.service.VerifyWidget(context.Background(), validClaims)
		require.NoError(t, err)
		require.Equal(t, f.issuer.link, result.ActionLink)
	})

	t.Run("unconfigured verifier", func(t *testing.T) {
		f := newServiceFixture(t, withVerifier(stubVerifier{configured: false}))

		_, err := f.service.VerifyWidget(context.Background(), validClaims)
		require.ErrorIs(t, err, autherrors.ErrBotNotConfigured)
	})

	t.Run("invalid signature", func(t *testing.T) {
		f := newServiceFixture(t, withVerifier(stubVerifier{configured: true, valid: false}))

		_, err := f.service.VerifyWidget(context.Background(), validClaims)
		require.ErrorIs(t, err, autherrors.ErrInvalidSignature)
		require.Zero(t, f.issuer.calls)
	})

	t.Run("malformed telegram id", func(t *testing.T) {
		f := newServiceFixture(t)
		claims := map[string]string{telegram.ClaimID: "not-a-number", telegram.ClaimHash: "x"}

		_, err := f.service.VerifyWidget(context.Background(), claims)
		require.Error(t, err)
		require.True(t, strings.Contains(err.Error(), "telegram"))
	})

	t.Run("missing issuer", func(t *testing.T) {
		f := newServiceFixture(t, withoutIssuer())

		_, err := f.service.VerifyWidget(context.Background(), validClaims)
		require.ErrorIs(t, err, autherrors.ErrProviderNotConfigured)
	})

	t.Run("issuance failure", func(t *testing.T) {
		f := newServiceFixture(t, withIssuedLink(""))

		_, err := f.service.VerifyWidget(context.Background(), validClaims)
		require.ErrorIs(t, err, autherrors.ErrLinkIssuance)
	})
}

func TestService_EndToEnd(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pair, err := f.service.Start(ctx)
	require.NoError(t, err)
	require.Nil(t, f.service.Status(ctx, pair.Ticket).ActionLink)

	f.service.HandleUpdate(ctx, startUpdate(42, pair.Nonce))

	result := f.service.Status(ctx, pair.Ticket)
	require.NotNil(t, result.ActionLink)
	require.Equal(t, f.issuer.link, *result.ActionLink)
}
