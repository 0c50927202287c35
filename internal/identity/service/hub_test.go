package service_test

import (
	"sync"
	"testing"

	"github.com/pillflow/pillflow-backend/internal/identity/service"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHub_DeliversToOwnSubscribers(t *testing.T) {
	hub := service.NewSessionHub(logger.Nop())
	mine, unsubscribe := hub.Subscribe("u-1")
	defer unsubscribe()
	theirs, unsubscribeOther := hub.Subscribe("u-2")
	defer unsubscribeOther()

	hub.Publish(service.SessionChange{Event: service.SessionSignedIn, UserID: "u-1"})

	require.Len(t, mine, 1)
	change := <-mine
	assert.Equal(t, service.SessionSignedIn, change.Event)
	assert.False(t, change.At.IsZero())
	assert.Len(t, theirs, 0)
}

func TestSessionHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := service.NewSessionHub(logger.Nop())
	ch, unsubscribe := hub.Subscribe("u-1")
	defer unsubscribe()

	for i := 0; i < 50; i++ {
		hub.Publish(service.SessionChange{Event: service.SessionTokenRefreshed, UserID: "u-1"})
	}

	assert.Equal(t, cap(ch), len(ch))
}

func TestSessionHub_Unsubscribe(t *testing.T) {
	hub := service.NewSessionHub(logger.Nop())
	ch, unsubscribe := hub.Subscribe("u-1")
	assert.Equal(t, 1, hub.Subscribers("u-1"))

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers("u-1"))
	assert.NotPanics(t, func() {
		hub.Publish(service.SessionChange{Event: service.SessionSignedOut, UserID: "u-1"})
	})
}

func TestSessionHub_Close(t *testing.T) {
	hub := service.NewSessionHub(logger.Nop())
	ch, unsubscribe := hub.Subscribe("u-1")

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.NotPanics(t, unsubscribe)

	late, _ := hub.Subscribe("u-1")
	_, open = <-late
	assert.False(t, open)
}

func TestSessionHub_Concurrent(t *testing.T) {
	hub := service.NewSessionHub(logger.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, unsubscribe := hub.Subscribe("u-1")
			defer unsubscribe()
			select {
			case <-ch:
			default:
			}
		}()
		go func() {
			defer wg.Done()
			hub.Publish(service.SessionChange{Event: service.SessionSignedIn, UserID: "u-1"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Subscribers("u-1"))
}
