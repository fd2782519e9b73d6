package lottery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveByIDAndName(t *testing.T) {
	c := DefaultCatalog()

	e, ok := c.Resolve("36")
	require.True(t, ok)
	assert.Equal(t, "FEDERAL", e.Name)

	e, ok = c.Resolve("pt rio")
	require.True(t, ok)
	assert.Equal(t, "PT RIO", e.Name)

	_, ok = c.Resolve("LOTERIA DA LUA")
	assert.False(t, ok)
}

func TestByNameAndTime(t *testing.T) {
	c := DefaultCatalog()
	e, ok := c.ByNameAndTime("PT Rio", "09:20")
	require.True(t, ok)
	assert.Equal(t, "09:30", e.RealCloseTime)

	_, ok = c.ByNameAndTime("PT RIO", "09:21")
	assert.False(t, ok)
}

func TestWindow(t *testing.T) {
	start, end, err := Window(Extraction{RealCloseTime: "09:30"})
	require.NoError(t, err)
	assert.Equal(t, 9*60, start)
	assert.Equal(t, 9*60+30, end)

	start, _, err = Window(Extraction{RealCloseTime: "00:10"})
	require.NoError(t, err)
	assert.Equal(t, 0, start)

	_, _, err = Window(Extraction{RealCloseTime: "xx"})
	assert.Error(t, err)
}

func TestBlackoutDays(t *testing.T) {
	assert.Nil(t, BlackoutDays(Extraction{Days: "Todos"}))
	assert.Nil(t, BlackoutDays(Extraction{Days: ""}))
	assert.Nil(t, BlackoutDays(Extraction{Days: "-"}))
	assert.Nil(t, BlackoutDays(Extraction{Days: " \u2014 "}))
	assert.Equal(t, []time.Weekday{time.Sunday}, BlackoutDays(Extraction{Days: "Seg, Ter, Qua, Qui, Sex, Sáb"}))

	fed := BlackoutDays(Extraction{Days: "Qua, Sáb"})
	assert.Len(t, fed, 5)
	assert.True(t, DrawsOn(Extraction{Days: "Qua, Sáb"}, time.Wednesday))
	assert.False(t, DrawsOn(Extraction{Days: "Qua, Sáb"}, time.Monday))
}

func TestMinutes(t *testing.T) {
	m, err := Minutes("21h20")
	require.NoError(t, err)
	assert.Equal(t, 21*60+20, m)
	assert.Equal(t, "07:05", FormatMinutes(7*60+5))
	_, err = Minutes("25:00")
	assert.Error(t, err)
}

func TestActiveNamesDistinctSorted(t *testing.T) {
	names := DefaultCatalog().ActiveNames()
	assert.Contains(t, names, "FEDERAL")
	assert.IsIncreasing(t, names)
}
