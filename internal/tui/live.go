// Package tui holds the live flight view: a bubbletea program that steps
// the vehicle in real time and plots altitude as it flies.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/quad"
)

const historyCapacity = 600

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	statsStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	rpmBarFilled = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
)

type TickMsg time.Time

// Model steps the vehicle on a wall-clock tick and renders the flight
// instruments.
type Model struct {
	dyn        dynamo.System
	stepper    dynamo.Stepper
	controller dynamo.Controller

	state      dynamo.State
	u          dynamo.Control
	t, dt      float64
	running    bool
	failed     error
	initial    dynamo.State
	altHistory []float64
}

func NewModel(dyn dynamo.System, stepper dynamo.Stepper, ctrl dynamo.Controller, x0 dynamo.State, dt float64) Model {
	return Model{
		dyn:        dyn,
		stepper:    stepper,
		controller: ctrl,
		state:      x0.Clone(),
		u:          make(dynamo.Control, dyn.ControlDim()),
		dt:         dt,
		running:    true,
		initial:    x0.Clone(),
		altHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/50, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		}
	case TickMsg:
		if m.running && m.failed == nil {
			m.step()
		}
		return m, tea.Tick(time.Second/50, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	m.u = m.controller.Compute(m.state, m.t)
	newState, err := m.stepper.Step(m.dyn, m.state, m.u, m.t, m.dt)
	if err != nil {
		m.failed = err
		m.running = false
		return
	}
	m.state = newState
	m.t += m.dt

	m.altHistory = append(m.altHistory, m.state[quad.StateH])
	if len(m.altHistory) > historyCapacity {
		m.altHistory = m.altHistory[1:]
	}
}

func (m *Model) reset() {
	m.t = 0
	m.state = m.initial.Clone()
	m.u = make(dynamo.Control, m.dyn.ControlDim())
	m.altHistory = m.altHistory[:0]
	m.failed = nil
	m.running = true
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("QUADROTOR FLIGHT") + "\n")

	status := "FLYING"
	if m.failed != nil {
		status = warnStyle.Render(fmt.Sprintf("FAILED: %v", m.failed))
	} else if !m.running {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.altHistory) > 1 {
		chart := asciigraph.Plot(m.altHistory,
			asciigraph.Height(8), asciigraph.Width(50),
			asciigraph.Caption("altitude (m)"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2f s", m.t)) + "\n")
	s.WriteString(labelStyle.Render("Altitude") + valueStyle.Render(fmt.Sprintf("%.2f m", m.state[quad.StateH])) + "\n")
	s.WriteString(labelStyle.Render("Climb") + valueStyle.Render(fmt.Sprintf("%.2f m/s", -m.state[quad.StateW])) + "\n")

	phi := m.state[quad.StatePhi] * 180 / math.Pi
	theta := m.state[quad.StateTheta] * 180 / math.Pi
	psi := m.state[quad.StatePsi] * 180 / math.Pi
	att := fmt.Sprintf("%+.1f / %+.1f / %+.1f deg", phi, theta, psi)
	if math.Abs(theta) > 80 {
		s.WriteString(labelStyle.Render("Attitude") + warnStyle.Render(att) + "\n")
	} else {
		s.WriteString(labelStyle.Render("Attitude") + valueStyle.Render(att) + "\n")
	}

	s.WriteString("\nPROPELLERS\n")
	for i, rpm := range m.u {
		s.WriteString(fmt.Sprintf("  %d %s %5.0f rpm\n", i+1, rpmBar(rpm), rpm))
	}

	s.WriteString(helpStyle.Render("space:pause  r:reset  q:quit"))
	return statsStyle.Render(s.String())
}

func rpmBar(rpm float64) string {
	const barWidth = 16
	const fullScale = 6000.0
	filled := int(math.Min(1, math.Max(0, rpm/fullScale)) * barWidth)
	return rpmBarFilled.Render("[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]")
}
