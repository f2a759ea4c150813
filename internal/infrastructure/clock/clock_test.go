package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessClock_TodayUsesBusinessZone(t *testing.T) {
	c, err := New("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC is already the next day in Kolkata (UTC+5:30)
	c.now = func() time.Time { return time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), c.Today())
	assert.Equal(t, "Asia/Kolkata", c.Now().Location().String())
	assert.Equal(t, 1, c.Now().Hour())
}

func TestNew(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, c.Location())

	_, err = New("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestFixed(t *testing.T) {
	at := time.Date(2024, 2, 29, 23, 30, 0, 0, time.FixedZone("UTC-3", -3*60*60))
	c := Fixed(at)
	assert.True(t, c.Now().Equal(at))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), c.Today())
}
