// Package types defines the shared data structures for the SceneWeaver engine.
// This package contains only type definitions and their variant markers.
package types

// Command is one executable script step. The set of implementations is
// closed: only the types in this file satisfy it.
type Command interface {
	command()
}

// Say renders a line of dialogue and records it in the history.
type Say struct {
	Speaker string
	Text    string
	Audio   string // optional voice clip
	Alt     bool   // alternate speaker styling (name box variant)
}

// ShowActor presents an actor. Frames, when set, takes precedence over Image
// and is played as an animated sprite sequence.
type ShowActor struct {
	ID       string
	Image    string
	Frames   []string
	Position string // "left", "center", "right" or host-defined
}

// HideActor dismisses a visible actor.
type HideActor struct {
	ID string
}

// SetBackground replaces the scene background with an image or a video.
type SetBackground struct {
	Image     string
	Video     string
	Audio     string // optional ambient track
	TimeAware bool   // append a time-of-day suffix to the image path
	Loop      bool
}

// PlayAudio starts an audio track.
type PlayAudio struct {
	Ref  string
	Loop bool
}

// Jump transfers control to another scene.
type Jump struct {
	Target string
}

// Choice offers the player a set of options.
type Choice struct {
	Options []ChoiceOption
}

// SetVar assigns a variable.
type SetVar struct {
	Name  string
	Value any
}

// AddVar adds Delta to a numeric variable. Missing variables count as 0.
type AddVar struct {
	Name  string
	Delta float64
}

// SubVar subtracts Delta from a numeric variable. Missing variables count as 0.
type SubVar struct {
	Name  string
	Delta float64
}

// If runs Then when Cond holds, otherwise Else.
type If struct {
	Cond Condition
	Then []Command
	Else []Command
}

// Wait pauses execution for Duration milliseconds.
type Wait struct {
	Duration int
}

// Block groups commands into a nested sequence.
type Block struct {
	Commands []Command
}

// Deferred computes a command just before dispatch. Produce may return
// another Deferred; the chain is resolved until a concrete command (or nil)
// comes out. Deferred commands cannot be serialized.
type Deferred struct {
	Produce func(Scope) (Command, error)
}

func (Say) command()           {}
func (ShowActor) command()     {}
func (HideActor) command()     {}
func (SetBackground) command() {}
func (PlayAudio) command()     {}
func (Jump) command()          {}
func (Choice) command()        {}
func (SetVar) command()        {}
func (AddVar) command()        {}
func (SubVar) command()        {}
func (If) command()            {}
func (Wait) command()          {}
func (Block) command()         {}
func (Deferred) command()      {}

// Condition is a boolean expression over session variables and the clock.
// A nil Condition is always true.
type Condition interface {
	condition()
}

// Var compares a session variable against Value.
type Var struct {
	Name  string
	Op    string // ==, !=, >, <, >=, <=
	Value any
}

// TimeOfDay compares the current in-game hour against Hour.
type TimeOfDay struct {
	Op   string
	Hour int
}

// And holds when every nested condition holds.
type And struct {
	Conds []Condition
}

// Or holds when at least one nested condition holds.
type Or struct {
	Conds []Condition
}

// Not negates Cond.
type Not struct {
	Cond Condition
}

// Literal is a constant boolean used in place of a condition.
type Literal bool

func (Var) condition()       {}
func (TimeOfDay) condition() {}
func (And) condition()       {}
func (Or) condition()        {}
func (Not) condition()       {}
func (Literal) condition()   {}

// ChoiceClass selects how an option group is presented.
type ChoiceClass int

const (
	ClassDefault ChoiceClass = iota
	ClassTab
	ClassSidebar
	ClassFloating
	ClassPositioned
)

// Layout places a positioned option explicitly.
type Layout struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ChoiceOption is one selectable entry of a Choice.
type ChoiceOption struct {
	Label   string
	Action  []Command
	Class   ChoiceClass
	Icon    string
	Visible Condition // nil means always visible
	Layout  *Layout   // non-nil places a Default option in the Positioned group
}

// HistoryEntry is one rendered line of dialogue.
type HistoryEntry struct {
	Speaker string `json:"name"`
	Text    string `json:"text"`
}

// TimeState is the in-game clock.
type TimeState struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ExecutionState is the complete mutable narrative state of a session.
type ExecutionState struct {
	CurrentScene  string
	Cursor        int
	JumpRequested bool
	// LineRecorded is set once the command at Cursor has pushed its line
	// into History, so that resuming there does not record it twice.
	LineRecorded  bool
	Variables     map[string]any
	History       []HistoryEntry
	VisibleActors map[string]bool
	Active        bool
	Time          TimeState
	RNGSeed       int64
	RNGPosition   int64
}

// Scope is the view of a running session handed to deferred commands.
type Scope interface {
	Var(name string) (any, bool)
	Hour() int
	Roll(sides int) int
	Pick(weights []int) int
	Eval(c Condition) bool
	QuickSave(slot string) bool
	QuickLoad(slot string) bool
}

// Event is an observable notification emitted by the interpreter.
type Event struct {
	Type string
	Data map[string]any
}

// GameDef holds script metadata from Lua.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Start   string // starting scene ID
	Intro   string
}

// ActorDef declares an actor in script content. Type names a registered
// actor type; Props feed its constructor.
type ActorDef struct {
	Name   string
	Type   string
	Player bool
	Props  map[string]any
}

// MapDef declares a world map with its spawn point and resident NPCs.
type MapDef struct {
	ID     string
	SpawnX float64
	SpawnY float64
	NPCs   []string
}
