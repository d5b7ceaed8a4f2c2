package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/sceneweaver/engine"
	"github.com/nathoo/sceneweaver/engine/events"
	"github.com/nathoo/sceneweaver/types"
)

// Messages carrying presenter calls into the Update loop.
type lineMsg struct{ line engine.Line }

type actorMsg struct {
	id       string
	frames   []string
	position string
	shown    bool
}

type backgroundMsg struct{ bg engine.Background }

type audioMsg struct {
	ref  string
	loop bool
}

type menuMsg struct{ menu engine.Menu }

type clearMenusMsg struct{ ids []int }

type sceneMsg struct{ id string }

type scriptErrMsg struct{ text string }

// Bridge is the presenter of a TUI session. The engine calls it while
// holding its execution token, so calls only enqueue; a pump goroutine
// hands the queue to the program in order.
type Bridge struct {
	mu      sync.Mutex
	queue   []tea.Msg
	wake    chan struct{}
	stop    chan struct{}
	started bool
}

var _ engine.Presenter = (*Bridge)(nil)

// NewBridge creates a bridge. Calls made before Attach are kept.
func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

// Attach starts delivering queued messages to send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()
	go b.pump(send)
}

// Stop ends delivery.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.stop:
	default:
		close(b.stop)
	}
}

// Watch forwards scene starts and script errors from bus.
func (b *Bridge) Watch(bus *events.Bus) (cancel func()) {
	c1 := bus.Subscribe(events.SceneStarted, func(e types.Event) {
		id, _ := e.Data["scene"].(string)
		b.push(sceneMsg{id: id})
	})
	c2 := bus.Subscribe(events.ScriptError, func(e types.Event) {
		b.push(scriptErrMsg{text: fmt.Sprint(e.Data["error"])})
	})
	return func() { c1(); c2() }
}

func (b *Bridge) push(msg tea.Msg) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) pump(send func(tea.Msg)) {
	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, msg := range batch {
			select {
			case <-b.stop:
				return
			default:
			}
			send(msg)
		}

		select {
		case <-b.wake:
		case <-b.stop:
			return
		}
	}
}

func (b *Bridge) RenderLine(l engine.Line) <-chan struct{} {
	b.push(lineMsg{line: l})
	return nil
}

func (b *Bridge) PresentActor(id string, frames []string, position string) {
	b.push(actorMsg{id: id, frames: frames, position: position, shown: true})
}

func (b *Bridge) DismissActor(id string) {
	b.push(actorMsg{id: id})
}

func (b *Bridge) ChangeBackground(bg engine.Background) <-chan struct{} {
	b.push(backgroundMsg{bg: bg})
	return nil
}

func (b *Bridge) PlayAudio(ref string, loop bool) {
	b.push(audioMsg{ref: ref, loop: loop})
}

func (b *Bridge) RenderChoices(m engine.Menu) {
	b.push(menuMsg{menu: m})
}

func (b *Bridge) ClearChoices(ids []int) {
	b.push(clearMenusMsg{ids: ids})
}
