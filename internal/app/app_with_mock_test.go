package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/zapcooking/backend/internal/kv/mocks"
	"github.com/zapcooking/backend/internal/models"
)

func TestShorten_StorageDownIs503(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		SetIfAbsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, errors.New("kv unavailable"))

	r := newTestApp(t, store, false)

	w := postJSON(t, r, "/api/shorten", models.ShortenReq{Naddr: testNaddr})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestShorten_CollisionExhaustionIs503(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// every generated code collides, retry budget runs out
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		SetIfAbsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, nil).
		Times(5)

	r := newTestApp(t, store, false)

	w := postJSON(t, r, "/api/shorten", models.ShortenReq{Naddr: testNaddr})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPing_StorageDownIs503(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Ping(gomock.Any()).Return(errors.New("kv unavailable"))

	r := newTestApp(t, store, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
