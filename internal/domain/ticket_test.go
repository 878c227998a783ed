package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatusOrdering(t *testing.T) {
	assert.True(t, TicketStatusQueued.CanAdvanceTo(TicketStatusProcessing))
	assert.True(t, TicketStatusQueued.CanAdvanceTo(TicketStatusResolved))
	assert.True(t, TicketStatusAssigned.CanAdvanceTo(TicketStatusResolved))

	assert.False(t, TicketStatusProcessing.CanAdvanceTo(TicketStatusQueued))
	assert.False(t, TicketStatusResolved.CanAdvanceTo(TicketStatusResolved))
	assert.False(t, TicketStatusResolved.CanAdvanceTo(TicketStatusAssigned))
	assert.False(t, TicketStatus("closed").CanAdvanceTo(TicketStatusResolved))
}

func TestTicketStatusIsActive(t *testing.T) {
	for _, s := range ActiveTicketStatuses {
		assert.True(t, s.IsActive(), s)
	}
	assert.False(t, TicketStatusResolved.IsActive())
	assert.False(t, TicketStatus("").IsActive())
}

func TestServiceTicketCloneIsDeep(t *testing.T) {
	assignee := "tech"
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	original := &ServiceTicket{
		ID:            "t-1",
		AssignedTo:    &assignee,
		AssignedAt:    &at,
		ViolationData: ViolationData{Occupancy: 16, Rules: []string{"over_capacity"}},
	}

	cp := original.Clone()
	require.NotNil(t, cp)
	*cp.AssignedTo = "someone else"
	*cp.AssignedAt = at.Add(time.Hour)
	cp.ViolationData.Rules[0] = "changed"
	cp.ViolationData.Occupancy = 1

	assert.Equal(t, "tech", *original.AssignedTo)
	assert.Equal(t, at, *original.AssignedAt)
	assert.Equal(t, "over_capacity", original.ViolationData.Rules[0])
	assert.Equal(t, 16, original.ViolationData.Occupancy)
}

func TestSensorReadingValid(t *testing.T) {
	ok := SensorReading{ID: "r", RoomID: "room", Occupancy: 3, AirQuality: 80, Timestamp: time.Now()}
	assert.True(t, ok.Valid())

	missingRoom := ok
	missingRoom.RoomID = ""
	assert.False(t, missingRoom.Valid())

	badAir := ok
	badAir.AirQuality = 101
	assert.False(t, badAir.Valid())

	noTime := ok
	noTime.Timestamp = time.Time{}
	assert.False(t, noTime.Valid())
}
