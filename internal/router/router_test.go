package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ecodesk/config"
	"ecodesk/internal/auth"
	"ecodesk/internal/database"
	"ecodesk/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeCloud struct{}

func (fakeCloud) UploadFile(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	return "https://cdn.example/" + publicID, nil
}

type env struct {
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	user   models.User
	staff  models.User
}

func newEnv(t *testing.T, opts ...func(*config.Config)) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT:    config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "ecodesk-test"},
		Chat: config.ChatConfig{
			HistoryLimit:       50,
			SendQueueSize:      16,
			MaxAttachmentBytes: 1024,
			UploadFolder:       "test/chat",
		},
		Presence: config.PresenceConfig{RecentWindow: 2 * time.Minute, PongWait: time.Minute, WriteWait: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Username: "alice", FullName: "Alice", Email: "alice@example.com", PasswordHash: string(hash), IsActive: true}
	staff := models.User{Username: "bob", FullName: "Bob Support", Email: "bob@example.com", PasswordHash: string(hash), IsStaff: true, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&staff).Error)

	return &env{
		engine: Setup(cfg, db, fakeCloud{}, slog.Default()),
		db:     db,
		cfg:    cfg,
		user:   user,
		staff:  staff,
	}
}

func (e *env) token(t *testing.T, u models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(&e.cfg.JWT, u.ID, u.Username, u.IsStaff)
	require.NoError(t, err)
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *env) startConversation(t *testing.T) uint {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/conversations", e.token(t, e.user), bytes.NewBufferString("{}"), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Conversation models.Conversation `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.Conversation.ID)
	return resp.Conversation.ID
}

func multipartText(t *testing.T, text string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", text))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func multipartFile(t *testing.T, name string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(pad int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return append(header, make([]byte, pad)...)
}

func TestAuthToken(t *testing.T) {
	e := newEnv(t)

	body := bytes.NewBufferString(`{"email":"bob@example.com","password":"secret"}`)
	w := e.do(t, http.MethodPost, "/api/v1/auth/token", "", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	body = bytes.NewBufferString(`{"email":"bob@example.com","password":"wrong"}`)
	w = e.do(t, http.MethodPost, "/api/v1/auth/token", "", body, "application/json")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostMessageAndUnreadFlow(t *testing.T) {
	e := newEnv(t)
	convID := e.startConversation(t)

	body, ct := multipartText(t, "Need help")
	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", convID), e.token(t, e.user), body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var posted struct {
		Message struct {
			ID       uint   `json:"id"`
			Text     string `json:"text"`
			SenderID uint   `json:"sender_id"`
			IsRead   bool   `json:"is_read"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posted))
	require.Equal(t, "Need help", posted.Message.Text)
	require.Equal(t, e.user.ID, posted.Message.SenderID)
	require.False(t, posted.Message.IsRead)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d/unread-count", convID), e.token(t, e.staff), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"unread_count":1}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/unread-count", e.token(t, e.staff), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"unread_count":1}`, w.Body.String())

	// mark read twice: same result
	for i := 0; i < 2; i++ {
		w = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/read", convID), e.token(t, e.staff), bytes.NewBufferString("{}"), "application/json")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d/unread-count", convID), e.token(t, e.staff), nil, "")
	require.JSONEq(t, `{"unread_count":0}`, w.Body.String())
}

func TestEmptyMessageRejected(t *testing.T) {
	e := newEnv(t)
	convID := e.startConversation(t)

	body, ct := multipartText(t, "   ")
	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", convID), e.token(t, e.user), body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNonParticipantForbidden(t *testing.T) {
	e := newEnv(t)
	convID := e.startConversation(t)

	outsider := models.User{Username: "carol", Email: "carol@example.com", IsActive: true}
	require.NoError(t, e.db.Create(&outsider).Error)

	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d", convID), e.token(t, outsider), nil, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.NotContains(t, w.Body.String(), "messages")
}

func TestDeleteConversationStaffOnly(t *testing.T) {
	e := newEnv(t)
	convID := e.startConversation(t)

	w := e.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/conversations/%d", convID), e.token(t, e.user), nil, "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/conversations/%d", convID), e.token(t, e.staff), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	// user no longer lists it
	w = e.do(t, http.MethodGet, "/api/v1/conversations", e.token(t, e.user), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"conversations":[]}`, w.Body.String())
}

func TestHardDeleteRemovesMessages(t *testing.T) {
	e := newEnv(t)
	convID := e.startConversation(t)

	body, ct := multipartText(t, "to be purged")
	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", convID), e.token(t, e.user), body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/conversations/%d?hard=true", convID), e.token(t, e.staff), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var msgCount int64
	require.NoError(t, e.db.Model(&models.Message{}).Count(&msgCount).Error)
	require.Zero(t, msgCount)
}

func TestUploadAttachment(t *testing.T) {
	e := newEnv(t)

	body, ct := multipartFile(t, "shot.png", pngBytes(64))
	w := e.do(t, http.MethodPost, "/api/v1/uploads/chat", e.token(t, e.user), body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var att struct {
		URL      string `json:"url"`
		Mime     string `json:"mime"`
		Category string `json:"category"`
		Size     int64  `json:"size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &att))
	require.Contains(t, att.URL, "https://cdn.example/")
	require.Equal(t, "image/png", att.Mime)
	require.Equal(t, "image", att.Category)
	require.EqualValues(t, 72, att.Size)
}

func TestUploadAttachmentRejections(t *testing.T) {
	e := newEnv(t)

	// over the configured byte limit
	body, ct := multipartFile(t, "big.png", pngBytes(4096))
	w := e.do(t, http.MethodPost, "/api/v1/uploads/chat", e.token(t, e.user), body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// disallowed type (plain text)
	body, ct = multipartFile(t, "notes.txt", []byte("just some text"))
	w = e.do(t, http.MethodPost, "/api/v1/uploads/chat", e.token(t, e.user), body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffInboxSummaries(t *testing.T) {
	e := newEnv(t)
	convID := e.startConversation(t)

	body, ct := multipartText(t, "latest question")
	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", convID), e.token(t, e.user), body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/conversations", e.token(t, e.staff), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Conversations []struct {
			CounterpartName string `json:"counterpart_name"`
			UnreadCount     int64  `json:"unread_count"`
			LastMessage     *struct {
				Text string `json:"text"`
			} `json:"last_message"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Conversations, 1)
	require.Equal(t, "Alice", resp.Conversations[0].CounterpartName)
	require.EqualValues(t, 1, resp.Conversations[0].UnreadCount)
	require.NotNil(t, resp.Conversations[0].LastMessage)
	require.Equal(t, "latest question", resp.Conversations[0].LastMessage.Text)
}

func TestPresenceEndpoints(t *testing.T) {
	e := newEnv(t)

	// unknown staff yields never seen, not an error
	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/staff/%d/presence", e.staff.ID), e.token(t, e.user), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "never seen")

	// heartbeat is staff only
	w = e.do(t, http.MethodPost, "/api/v1/presence/heartbeat", e.token(t, e.user), nil, "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/presence/heartbeat", e.token(t, e.staff), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/staff/%d/presence", e.staff.ID), e.token(t, e.user), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "just now")
	require.Contains(t, w.Body.String(), `"recently_active":true`)
}

func TestHistoryLimitClamped(t *testing.T) {
	e := newEnv(t, func(cfg *config.Config) { cfg.Chat.HistoryLimit = 2 })
	convID := e.startConversation(t)

	for _, text := range []string{"one", "two", "three"} {
		body, ct := multipartText(t, text)
		w := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", convID), e.token(t, e.user), body, ct)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// an oversized limit falls back to the configured page size
	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d?limit=1000000", convID), e.token(t, e.user), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	require.Equal(t, "two", resp.Messages[0].Text)
	require.Equal(t, "three", resp.Messages[1].Text)
}

func TestGetConversationIncludesPresence(t *testing.T) {
	e := newEnv(t)
	convID := e.startConversation(t)

	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d", convID), e.token(t, e.user), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "staff_presence")
	require.Contains(t, w.Body.String(), `"messages":[]`)
}
