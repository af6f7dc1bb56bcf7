package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"calevid/internal/models"
	"calevid/internal/repository"
	"calevid/pkg/cloudinary"
	"calevid/pkg/fal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newFalServer(fail bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost:
			fmt.Fprintf(w, `{"request_id":"req-1","status_url":"http://%s/status","response_url":"http://%s/result"}`, r.Host, r.Host)
		case r.URL.Path == "/status":
			fmt.Fprint(w, `{"request_id":"req-1","status":"COMPLETED","queue_position":0}`)
		default:
			fmt.Fprint(w, `{"video":{"url":"https://cdn.fal.example/req-1.mp4"}}`)
		}
	}))
}

func newTestVideoService(t *testing.T, db *gorm.DB, falURL string) *VideoService {
	t.Helper()
	return NewVideoService(
		repository.NewUserRepository(db),
		fal.NewClient(falURL, "test-key", "fal-ai/ovi"),
		cloudinary.StubStore{},
	)
}

func TestGenerateConsumesOneCredit(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "a@b.com")
	require.NoError(t, db.Model(u).Update("credits", 2).Error)

	ts := newFalServer(false)
	defer ts.Close()
	svc := newTestVideoService(t, db, ts.URL)

	res, err := svc.Generate(context.Background(), u.ID, "a cat on the moon")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.fal.example/req-1.mp4", res.VideoURL)
	assert.Equal(t, "req-1", res.RequestID)

	var fresh models.User
	require.NoError(t, db.First(&fresh, u.ID).Error)
	assert.Equal(t, int64(1), fresh.Credits)
}

func TestGenerateWithoutCredits(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "a@b.com")

	ts := newFalServer(false)
	defer ts.Close()
	svc := newTestVideoService(t, db, ts.URL)

	_, err := svc.Generate(context.Background(), u.ID, "a cat on the moon")
	assert.ErrorIs(t, err, ErrNoCredits)
}

func TestGenerateRefundsOnFailure(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "a@b.com")
	require.NoError(t, db.Model(u).Update("credits", 1).Error)

	ts := newFalServer(true)
	defer ts.Close()
	svc := newTestVideoService(t, db, ts.URL)

	_, err := svc.Generate(context.Background(), u.ID, "a cat on the moon")
	require.Error(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, u.ID).Error)
	assert.Equal(t, int64(1), fresh.Credits, "credit refunded on failed generation")
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "a@b.com")
	require.NoError(t, db.Model(u).Update("credits", 1).Error)

	svc := newTestVideoService(t, db, "http://127.0.0.1:0")

	_, err := svc.Generate(context.Background(), u.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	var fresh models.User
	require.NoError(t, db.First(&fresh, u.ID).Error)
	assert.Equal(t, int64(1), fresh.Credits, "no credit consumed for rejected prompt")
}

func TestGenerateTracksPlanUsage(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "a@b.com")
	require.NoError(t, db.Model(u).Updates(map[string]interface{}{
		"credits": 3, "plan": "pro", "plan_limit": 50,
	}).Error)

	ts := newFalServer(false)
	defer ts.Close()
	svc := newTestVideoService(t, db, ts.URL)

	_, err := svc.Generate(context.Background(), u.ID, "a cat on the moon")
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, u.ID).Error)
	assert.Equal(t, 1, fresh.PlanUsed)
}
