package content

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const validGame = `
meta:
  id: campus
  title: Campus Story
  start_node: intro
  start_location: quad
meters:
  - id: energy
    min: 0
    max: 100
    default: 80
flags:
  - id: met_alex
    type: bool
    default: false
zones:
  - id: campus
    name: Campus
    discovered: true
locations:
  - id: quad
    zone: campus
    name: The Quad
    discovered: true
    connections: [library]
  - id: library
    zone: campus
    name: Library
    connections: [quad]
nodes:
  - id: intro
    type: scene
    beats: ["A cold morning."]
    choices:
      - id: greet
        label: Say hello
        goto: hub
  - id: hub
    type: hub
events:
  - id: rain
    beats: ["Rain starts."]
`

func TestParseAppliesDefaults(t *testing.T) {
	def, err := Parse([]byte(validGame))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Time.StartDay != 1 {
		t.Errorf("expected start day 1, got %d", def.Time.StartDay)
	}
	if def.Time.Start != "08:00" {
		t.Errorf("expected start time 08:00, got %q", def.Time.Start)
	}
	if def.DefaultMinutes != 5 {
		t.Errorf("expected default minutes 5, got %d", def.DefaultMinutes)
	}
	if p := def.Events[0].Probability; p == nil || *p != 100 {
		t.Errorf("expected omitted probability to normalize to 100, got %v", p)
	}
}

func TestParseKeepsExplicitZeroProbability(t *testing.T) {
	def, err := Parse([]byte(validGame + `
  - id: drought
    probability: 0
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p := def.Events[1].Probability; p == nil || *p != 0 {
		t.Errorf("expected authored zero preserved, got %v", p)
	}
}

func TestConditionUnmarshalForms(t *testing.T) {
	var doc struct {
		Choices []Choice `yaml:"choices"`
	}
	src := `
choices:
  - id: a
    label: A
    when: always
  - id: b
    label: B
    when: meters.player.energy > 10
  - id: c
    label: C
    when:
      all:
        - flags.met_alex
        - not: npc_present("alex")
  - id: d
    label: D
    when:
      any:
        - flags.met_alex
        - has("coffee")
`
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !doc.Choices[0].When.IsZero() {
		t.Errorf(`expected "always" to decode as the zero condition`)
	}
	if got := doc.Choices[1].When.Expr; got != "meters.player.energy > 10" {
		t.Errorf("expected bare expression, got %q", got)
	}
	c := doc.Choices[2].When
	if len(c.All) != 2 {
		t.Fatalf("expected 2 all branches, got %d", len(c.All))
	}
	if c.All[1].Not == nil || c.All[1].Not.Expr != `npc_present("alex")` {
		t.Errorf("expected nested not branch, got %+v", c.All[1])
	}
	if len(doc.Choices[3].When.Any) != 2 {
		t.Errorf("expected 2 any branches, got %d", len(doc.Choices[3].When.Any))
	}
}

func TestConditionRejectsSequence(t *testing.T) {
	var c Condition
	if err := yaml.Unmarshal([]byte("[1, 2]"), &c); err == nil {
		t.Fatal("expected error for sequence condition")
	}
}

func TestValidateCrossReferences(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing start node",
			src: `
meta: {id: g, start_node: nowhere, start_location: quad}
locations: [{id: quad}]
nodes: [{id: intro}]
`,
			want: "start_node",
		},
		{
			name: "missing start location",
			src: `
meta: {id: g, start_node: intro, start_location: void}
locations: [{id: quad}]
nodes: [{id: intro}]
`,
			want: "start_location",
		},
		{
			name: "choice goto target undefined",
			src: `
meta: {id: g, start_node: intro, start_location: quad}
locations: [{id: quad}]
nodes:
  - id: intro
    choices: [{id: c, label: C, goto: missing}]
`,
			want: "goto target",
		},
		{
			name: "connection undefined",
			src: `
meta: {id: g, start_node: intro, start_location: quad}
locations: [{id: quad, connections: [basement]}]
nodes: [{id: intro}]
`,
			want: "connects to undefined",
		},
		{
			name: "location references undefined zone",
			src: `
meta: {id: g, start_node: intro, start_location: quad}
locations: [{id: quad, zone: ghost}]
nodes: [{id: intro}]
`,
			want: "undefined zone",
		},
		{
			name: "character meter undefined",
			src: `
meta: {id: g, start_node: intro, start_location: quad}
locations: [{id: quad}]
nodes: [{id: intro}]
characters: [{id: alex, meters: {charm: 5}}]
`,
			want: "undefined meter",
		},
		{
			name: "event scoped to undefined location",
			src: `
meta: {id: g, start_node: intro, start_location: quad}
locations: [{id: quad}]
nodes: [{id: intro}]
events: [{id: rain, location: rooftop}]
`,
			want: "undefined location",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestActionMinutes(t *testing.T) {
	def, err := Parse([]byte(validGame + `
action_costs:
  move: 10
default_minutes: 15
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	idx := NewIndex(def)

	if got := idx.ActionMinutes("move", 0); got != 10 {
		t.Errorf("expected category cost 10, got %d", got)
	}
	if got := idx.ActionMinutes("move", 30); got != 30 {
		t.Errorf("expected explicit override 30, got %d", got)
	}
	if got := idx.ActionMinutes("chat", 0); got != 15 {
		t.Errorf("expected default 15, got %d", got)
	}
}

func TestIndexLookups(t *testing.T) {
	def, err := Parse([]byte(validGame))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	idx := NewIndex(def)

	if loc, ok := idx.Location("quad"); !ok || loc.Zone != "campus" {
		t.Errorf("expected quad in campus zone, got %+v ok=%v", loc, ok)
	}
	if _, ok := idx.Node("hub"); !ok {
		t.Error("expected hub node")
	}
	if _, ok := idx.Meter("charisma"); ok {
		t.Error("did not expect undeclared meter to resolve")
	}
}
