package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"bookrag/internal/tui"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Base URL of the bookrag server")
	flag.Parse()

	m := tui.New(*serverURL)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
