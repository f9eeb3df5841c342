package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smysle/sakura-lottery-go/internal/backend"
)

type fakeBackend struct {
	profile *backend.Profile
	bp      *backend.BattlePass
	topups  []backend.TopUpRequest
	err     error
}

func (f *fakeBackend) GetProfile(ctx context.Context, id int64) (*backend.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeBackend) TopUp(ctx context.Context, req backend.TopUpRequest) (*backend.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.topups = append(f.topups, req)
	if req.Credits != nil {
		f.profile.Credits += *req.Credits
	}
	return nil, nil
}

func (f *fakeBackend) BattlePassView(ctx context.Context) (*backend.BattlePass, error) {
	return f.bp, f.err
}

func floatPtr(v float64) *float64 { return &v }

func TestProfileService_TopUp(t *testing.T) {
	fb := &fakeBackend{profile: &backend.Profile{ID: 3, Credits: 10}}
	svc := NewProfileService(fb)
	ctx := context.Background()

	p, err := svc.TopUp(ctx, backend.TopUpRequest{ProfileID: 3, Credits: floatPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, 50.0, p.Credits)

	tests := []struct {
		name string
		req  backend.TopUpRequest
		want error
	}{
		{"无资料", backend.TopUpRequest{Credits: floatPtr(1)}, ErrInvalidProfile},
		{"未指定金额", backend.TopUpRequest{ProfileID: 3}, ErrInvalidAmount},
		{"负数", backend.TopUpRequest{ProfileID: 3, Currency: floatPtr(-1)}, ErrInvalidAmount},
		{"零", backend.TopUpRequest{ProfileID: 3, Credits: floatPtr(0)}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.TopUp(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, fb.topups, 1)
}

func TestProfileService_TopUpBackendError(t *testing.T) {
	boom := errors.New("down")
	svc := NewProfileService(&fakeBackend{err: boom})

	_, err := svc.TopUp(context.Background(), backend.TopUpRequest{ProfileID: 3, Credits: floatPtr(1)})
	assert.ErrorIs(t, err, boom)
}

func TestProfileService_BattlePass(t *testing.T) {
	fb := &fakeBackend{
		profile: &backend.Profile{ID: 3, BattlepassLvl: 2},
		bp: &backend.BattlePass{
			SeasonStart: now.Add(-24 * time.Hour),
			SeasonEnd:   now.Add(90 * time.Minute),
			Rewards: []backend.BattlePassReward{
				{Level: 1, Reward: "credits", Amount: 50},
				{Level: 2, Reward: "ticket", Premium: true},
				{Level: 3, Reward: "credits", Amount: 100},
			},
		},
	}
	svc := NewProfileService(fb)
	svc.now = func() time.Time { return now }

	progress, err := svc.BattlePass(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Level)
	assert.Equal(t, int64(1), progress.Remaining.Hours)
	assert.Equal(t, int64(30), progress.Remaining.Minutes)
	require.Len(t, progress.Unlocked, 1)
	assert.Equal(t, 1, progress.Unlocked[0].Level)
	assert.Len(t, progress.Locked, 2)

	fb.profile.IsVIP = true
	progress, err = svc.BattlePass(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, progress.Unlocked, 2)

	progress, err = svc.BattlePass(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, progress.Level)
	assert.Len(t, progress.Locked, 3)
}
