// Package tui is a terminal chat client for the bookrag server. It
// POSTs the latest turn and renders the streamed answer as it arrives.
package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookrag/internal/domain"
	"bookrag/internal/server"
)

type startedMsg struct {
	body    io.ReadCloser
	session string
}

type imageMsg struct {
	answer   string
	imageURL string
}

type chunkMsg string

type doneMsg struct{}

type errMsg struct{ err error }

// Model is the Bubble Tea model for the chat client.
type Model struct {
	serverURL string
	client    *http.Client
	sessionID string

	input    textinput.Model
	viewport viewport.Model

	transcript strings.Builder
	answer     strings.Builder
	body       io.ReadCloser
	busy       bool
	status     string
	ready      bool
}

// New creates a chat client model pointed at the given server.
func New(serverURL string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the book and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		serverURL: serverURL,
		client:    &http.Client{Timeout: 5 * time.Minute},
		input:     ti,
		viewport:  vp,
		status:    "Connected. Type to chat.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.busy {
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.busy = true
				m.status = "Thinking..."
				m.input.Reset()
				fmt.Fprintf(&m.transcript, "%s %s\n", youStyle.Render("you:"), q)
				m.answer.Reset()
				m.viewport.SetContent(m.renderTranscript())
				m.viewport.GotoBottom()
				return m, m.send(q)
			}
		}

	case startedMsg:
		m.body = msg.body
		if msg.session != "" {
			m.sessionID = msg.session
		}
		fmt.Fprintf(&m.transcript, "%s ", botStyle.Render("bookrag:"))
		return m, m.readChunk()

	case chunkMsg:
		m.answer.WriteString(string(msg))
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, m.readChunk()

	case imageMsg:
		fmt.Fprintf(&m.transcript, "%s %s\n%s\n", botStyle.Render("bookrag:"), msg.answer, msg.imageURL)
		m.busy = false
		m.status = "Image ready."
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case doneMsg:
		m.transcript.WriteString(m.answer.String())
		m.transcript.WriteString("\n")
		m.answer.Reset()
		m.busy = false
		m.status = "Ready."
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case errMsg:
		m.busy = false
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout: header, transcript, input, status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("bookrag chat")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if m.transcript.Len() == 0 && m.answer.Len() == 0 {
		return "No messages yet."
	}
	return m.transcript.String() + m.answer.String()
}

// send posts the turn and classifies the response: a streamed text body
// or the single-object image variant.
func (m Model) send(q string) tea.Cmd {
	serverURL := m.serverURL
	client := m.client
	session := m.sessionID
	return func() tea.Msg {
		payload, _ := json.Marshal(server.ChatRequest{
			Messages: []domain.Turn{{Role: domain.RoleUser, Content: q}},
		})
		req, err := http.NewRequest(http.MethodPost, serverURL+"/api/chat", bytes.NewReader(payload))
		if err != nil {
			return errMsg{err}
		}
		req.Header.Set("Content-Type", "application/json")
		if session != "" {
			req.Header.Set(server.SessionHeader, session)
		}
		resp, err := client.Do(req)
		if err != nil {
			return errMsg{err}
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			data, _ := io.ReadAll(resp.Body)
			return errMsg{fmt.Errorf("server: %s: %s", resp.Status, strings.TrimSpace(string(data)))}
		}
		if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			defer resp.Body.Close()
			var out struct {
				AIResponse string `json:"aiResponse"`
				ImageURL   string `json:"imageUrl"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return errMsg{err}
			}
			return imageMsg{answer: out.AIResponse, imageURL: out.ImageURL}
		}
		return startedMsg{body: resp.Body, session: resp.Header.Get(server.SessionHeader)}
	}
}

// readChunk pulls the next increment off the open stream.
func (m Model) readChunk() tea.Cmd {
	body := m.body
	return func() tea.Msg {
		buf := make([]byte, 512)
		n, err := body.Read(buf)
		if n > 0 {
			return chunkMsg(buf[:n])
		}
		if err == io.EOF {
			_ = body.Close()
			return doneMsg{}
		}
		if err != nil {
			_ = body.Close()
			return errMsg{err}
		}
		return chunkMsg("")
	}
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	youStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
