// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSubscribePublish(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := NewEventBus(nil, nil)
	defer bus.Stop()

	subId, evtCh := bus.Subscribe("test.event")
	assert.NotEqual(t, EventSubscriberId(0), subId)

	bus.Publish("test.event", NewEvent("test.event", "payload"))
	select {
	case evt := <-evtCh:
		assert.Equal(t, EventType("test.event"), evt.Type)
		assert.Equal(t, "payload", evt.Data)
		assert.False(t, evt.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishOnlyMatchingType(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := NewEventBus(nil, nil)
	defer bus.Stop()

	_, evtCh := bus.Subscribe("wanted")
	bus.Publish("unwanted", NewEvent("unwanted", nil))
	select {
	case evt := <-evtCh:
		t.Fatalf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeFunc(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := NewEventBus(nil, nil)

	var wg sync.WaitGroup
	wg.Add(3)
	bus.SubscribeFunc("test.event", func(evt Event) {
		wg.Done()
	})
	for range 3 {
		bus.Publish("test.event", NewEvent("test.event", nil))
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handler calls")
	}
	// Stop closes the handler goroutine
	bus.Stop()
}

func TestUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := NewEventBus(nil, nil)
	defer bus.Stop()

	subId, evtCh := bus.Subscribe("test.event")
	bus.Unsubscribe("test.event", subId)
	// Channel is closed after unsubscribe
	_, ok := <-evtCh
	require.False(t, ok)
	// Publishing after unsubscribe must not panic
	bus.Publish("test.event", NewEvent("test.event", nil))
}

func TestStopAllowsReuse(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := NewEventBus(nil, nil)

	_, oldCh := bus.Subscribe("test.event")
	bus.Stop()
	_, ok := <-oldCh
	require.False(t, ok)

	_, evtCh := bus.Subscribe("test.event")
	bus.Publish("test.event", NewEvent("test.event", "after-stop"))
	select {
	case evt := <-evtCh:
		assert.Equal(t, "after-stop", evt.Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	bus.Stop()
}
