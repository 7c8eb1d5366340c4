package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/apiclient"
	"github.com/mcoot/dotareg/internal/dates"
)

// CommandName is the top-level slash command
const CommandName = "dota"

// SubCommand names a /dota sub-command
type SubCommand string

const (
	StatusCmd   SubCommand = "status"
	PlayersCmd  SubCommand = "players"
	AddCmd      SubCommand = "add"
	RemoveCmd   SubCommand = "remove"
	OpenCmd     SubCommand = "open"
	CloseCmd    SubCommand = "close"
	AnnounceCmd SubCommand = "announce"
)

const (
	optBroadcast  = "broadcast"
	optList       = "list"
	optSearch     = "search"
	optName       = "name"
	optDota2ID    = "dota2id"
	optMMR        = "mmr"
	optNotes      = "notes"
	optID         = "id"
	optTitle      = "title"
	optStart      = "start"
	optExpiry     = "expiry"
	optMaxPlayers = "max_players"
	optMessage    = "message"
)

const helpText = "Usage: /dota status | players | add | remove | open | close | announce"

type handlerFunc func(ctx context.Context, b *Bot, opts options) (string, error)

var subCommandHandlers = map[SubCommand]handlerFunc{
	StatusCmd:   statusHandler,
	PlayersCmd:  playersHandler,
	AddCmd:      addHandler,
	RemoveCmd:   removeHandler,
	OpenCmd:     openHandler,
	CloseCmd:    closeHandler,
	AnnounceCmd: announceHandler,
}

// inputError is a problem with what the user typed
type inputError string

func (e inputError) Error() string { return string(e) }

// options indexes the options of one sub-command by name
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (o options) str(name string) string {
	if opt, ok := o[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (o options) integer(name string) (int, bool) {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue()), true
	}
	return 0, false
}

func (o options) flag(name string) bool {
	if opt, ok := o[name]; ok {
		return opt.BoolValue()
	}
	return false
}

func (o options) list() string {
	if l := o.str(optList); l != "" {
		return l
	}
	return apiclient.ListPlayers
}

func statusHandler(ctx context.Context, b *Bot, _ options) (string, error) {
	status, err := b.api.Status(ctx)
	if err != nil {
		return "", err
	}
	return formatStatus(status), nil
}

func playersHandler(ctx context.Context, b *Bot, opts options) (string, error) {
	ps, err := b.api.ListPlayers(ctx, opts.list(), opts.str(optSearch))
	if err != nil {
		return "", err
	}
	return formatPlayers(ps), nil
}

func addHandler(ctx context.Context, b *Bot, opts options) (string, error) {
	mmr, _ := opts.integer(optMMR)
	p, err := b.api.CreatePlayer(ctx, opts.list(), apiclient.Player{
		Name:    opts.str(optName),
		Dota2ID: opts.str(optDota2ID),
		MMR:     strconv.Itoa(mmr),
		Notes:   opts.str(optNotes),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s (%s, %d MMR) as `%s`", p.Name, p.Dota2ID, p.MMR, p.ID), nil
}

func removeHandler(ctx context.Context, b *Bot, opts options) (string, error) {
	id := opts.str(optID)
	if id == "" {
		return "", inputError("a player id is required")
	}
	if err := b.api.DeletePlayer(ctx, opts.list(), id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed `%s`", id), nil
}

func openHandler(ctx context.Context, b *Bot, opts options) (string, error) {
	now := b.clock.Now()
	start, err := dates.Parse(opts.str(optStart), now, time.UTC)
	if err != nil {
		return "", inputError(err.Error())
	}
	expiry, err := dates.Parse(opts.str(optExpiry), now, time.UTC)
	if err != nil {
		return "", inputError(err.Error())
	}

	req := request.CreateSessionRequest{
		Title:     opts.str(optTitle),
		StartTime: start,
		Expiry:    expiry,
		Activate:  true,
	}
	if n, ok := opts.integer(optMaxPlayers); ok {
		req.MaxPlayers = &n
	}

	session, err := b.api.CreateSession(ctx, req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Opened **%s** (`%s`): %s", session.Title, session.ID, session.State), nil
}

func closeHandler(ctx context.Context, b *Bot, _ options) (string, error) {
	status, err := b.api.Status(ctx)
	if err != nil {
		return "", err
	}
	if status.SessionID == "" {
		return "", inputError("there is no active registration session")
	}

	session, err := b.api.CloseSession(ctx, status.SessionID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Closed **%s** with %d registered", session.Title, session.PlayerCount), nil
}

func announceHandler(ctx context.Context, b *Bot, opts options) (string, error) {
	msg := opts.str(optMessage)
	if msg == "" {
		return "", inputError("a message is required")
	}
	if err := b.api.Notify(ctx, msg); err != nil {
		return "", err
	}
	return "Announcement sent", nil
}

func formatStatus(s *response.RegistrationStatus) string {
	if s.SessionID == "" {
		return "No registration session is active."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** is %s\n", s.Title, s.State)
	if s.MaxPlayers != nil {
		fmt.Fprintf(&sb, "%d of %d registered\n", s.PlayerCount, *s.MaxPlayers)
	} else {
		fmt.Fprintf(&sb, "%d registered\n", s.PlayerCount)
	}
	if s.CountdownTarget != nil {
		verb := "Closes"
		if s.State == "PENDING" {
			verb = "Opens"
		}
		fmt.Fprintf(&sb, "%s <t:%d:R>\n", verb, s.CountdownTarget.Unix())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatPlayers(ps []response.Player) string {
	if len(ps) == 0 {
		return "No players."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%d players**\n", len(ps))
	for i, p := range ps {
		fmt.Fprintf(&sb, "%d. %s (%s) %d MMR `%s`\n", i+1, p.Name, p.Dota2ID, p.MMR, p.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Commands returns the application command definitions
func Commands() []*discordgo.ApplicationCommand {
	manageServer := int64(discordgo.PermissionManageServer)

	broadcast := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        optBroadcast,
		Description: "Share with the channel instead of only you",
	}
	list := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optList,
		Description: "Player list (default registrations)",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "registrations", Value: apiclient.ListPlayers},
			{Name: "masterlist", Value: apiclient.ListMasterlist},
		},
	}

	return []*discordgo.ApplicationCommand{{
		Name:                     CommandName,
		Description:              "Tournament registration admin",
		DefaultMemberPermissions: &manageServer,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(StatusCmd),
				Description: "Show the registration status",
				Options:     []*discordgo.ApplicationCommandOption{broadcast},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(PlayersCmd),
				Description: "List players",
				Options: []*discordgo.ApplicationCommandOption{
					list,
					{Type: discordgo.ApplicationCommandOptionString, Name: optSearch, Description: "Filter by name or Dota 2 id"},
					broadcast,
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(AddCmd),
				Description: "Add a player",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: optName, Description: "Player name", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: optDota2ID, Description: "Dota 2 account id", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: optMMR, Description: "Peak MMR", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: optNotes, Description: "Notes"},
					list,
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(RemoveCmd),
				Description: "Remove a player",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: optID, Description: "Player id", Required: true},
					list,
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(OpenCmd),
				Description: "Open a new registration session",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: optTitle, Description: "Session title", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: optExpiry, Description: `Closing time ("+48h" or a UTC date)`},
					{Type: discordgo.ApplicationCommandOptionString, Name: optStart, Description: `Opening time ("now", "+1h" or a UTC date)`},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: optMaxPlayers, Description: "Player cap"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(CloseCmd),
				Description: "Close the active registration session",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(AnnounceCmd),
				Description: "Post to the notification webhook",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: optMessage, Description: "Message", Required: true},
				},
			},
		},
	}}
}

// CommandRegistrar is the part of *discordgo.Session used to publish commands
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands replaces the application's commands with Commands().
// An empty guildID registers them globally.
func RegisterCommands(r CommandRegistrar, appID, guildID string) error {
	if _, err := r.ApplicationCommandBulkOverwrite(appID, guildID, Commands()); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}
