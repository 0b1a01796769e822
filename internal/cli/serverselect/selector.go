package serverselect

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog/log"

	"github.com/hireloop-dev/hireloop/internal/cli/config"
	"github.com/hireloop-dev/hireloop/internal/cli/userconfig"
)

// Prompt asks the user to pick one of servers and returns its index.
// Tests replace it to avoid the terminal.
var Prompt = promptSelect

// ResolveServer determines which server to use based on the following priority:
// 1. If serverAlias is provided, use that server
// 2. If the user has a selected server in their local config, use that
// 3. If only one server is in the project config, use that
// 4. Otherwise, prompt the user to select a server interactively
func ResolveServer(projectConfig *config.Config, serverAlias string) (*config.Server, error) {
	if serverAlias != "" {
		return projectConfig.GetServerByAlias(serverAlias)
	}

	selectedURL, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		server, err := projectConfig.GetServerByURL(selectedURL)
		if err == nil {
			return server, nil
		}
		// Selected server was removed from the project config
		log.Debug().Str("url", selectedURL).Msg("clearing stale server selection")
		_ = userconfig.SetSelectedServer("")
	}

	var server *config.Server
	if len(projectConfig.Servers) == 1 {
		server = &projectConfig.Servers[0]
	} else {
		server, err = PromptServerSelection(projectConfig)
		if err != nil {
			return nil, err
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		log.Warn().Err(err).Msg("failed to save selected server")
	}
	return server, nil
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	index, err := Prompt(projectConfig.Servers)
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}
	if index < 0 || index >= len(projectConfig.Servers) {
		return nil, fmt.Errorf("server selection out of range: %d", index)
	}

	return &projectConfig.Servers[index], nil
}

type serverOption struct {
	Label string
}

func promptSelect(servers []config.Server) (int, error) {
	options := make([]serverOption, len(servers))
	for i, server := range servers {
		options[i] = serverOption{Label: Label(server)}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	return index, err
}

// Label is how a server is shown to the user
func Label(server config.Server) string {
	if server.Alias == "" {
		return server.URL
	}
	return fmt.Sprintf("%s (%s)", server.Alias, server.URL)
}
