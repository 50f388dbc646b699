package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voicelink/internal/generator"
	"github.com/glizzus/voicelink/internal/presenters"
	"github.com/glizzus/voicelink/internal/worker"
)

// DiscordSession is the part of *discordgo.Session flows answer through.
type DiscordSession interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordSession = (*discordgo.Session)(nil)

// FlowContext is handed to a flow for one interaction.
type FlowContext struct {
	InstanceID string
	Context    context.Context
	Logger     *slog.Logger
}

// Flow answers the interactions its Matcher accepts.
type Flow struct {
	ID      string
	Matcher func(*discordgo.InteractionCreate) bool
	Handler func(DiscordSession, *discordgo.InteractionCreate, *FlowContext) error
}

// CommandMatcher matches the slash command called name.
func CommandMatcher(name string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		return i.ApplicationCommandData().Name == name
	}
}

// ComponentMatcher matches message components whose custom id is customID,
// optionally followed by ":" and an instance id.
func ComponentMatcher(customID string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		id := i.MessageComponentData().CustomID
		return id == customID || strings.HasPrefix(id, customID+":")
	}
}

// RequesterID is the user that triggered the interaction.
func RequesterID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Router dispatches interactions to the first registered flow that
// matches. Interactions from blacklisted users or guilds are dropped.
type Router struct {
	flowsMu sync.RWMutex
	flows   []*Flow
	ids     map[string]struct{}

	blacklist   worker.Blacklist
	idGenerator generator.Generator[string]
}

func NewRouter(blacklist worker.Blacklist, idGenerator generator.Generator[string]) *Router {
	if idGenerator == nil {
		idGenerator = generator.NewPrefixedGenerator("interaction", &generator.UUIDV4Generator{})
	}
	return &Router{
		ids:         make(map[string]struct{}),
		blacklist:   blacklist,
		idGenerator: idGenerator,
	}
}

func (r *Router) RegisterFlow(flow *Flow) {
	r.flowsMu.Lock()
	defer r.flowsMu.Unlock()

	if _, exists := r.ids[flow.ID]; exists {
		panic("flow already registered: " + flow.ID)
	}
	r.ids[flow.ID] = struct{}{}
	r.flows = append(r.flows, flow)
}

func (r *Router) match(i *discordgo.InteractionCreate) *Flow {
	r.flowsMu.RLock()
	defer r.flowsMu.RUnlock()
	for _, flow := range r.flows {
		if flow.Matcher(i) {
			return flow
		}
	}
	return nil
}

// Route runs the matching flow. A UserError from the flow is shown to the
// user instead of being returned.
func (r *Router) Route(s DiscordSession, i *discordgo.InteractionCreate) error {
	flow := r.match(i)
	if flow == nil {
		return nil
	}

	ctx := context.Background()
	requester := RequesterID(i)
	blocked, err := r.isBlacklisted(ctx, requester, i.GuildID)
	if err != nil {
		return err
	}
	if blocked {
		slog.Info("ignoring interaction from blacklisted requester", "flow", flow.ID, "userID", requester, "guildID", i.GuildID)
		return nil
	}

	instanceID, err := r.idGenerator.Next()
	if err != nil {
		return fmt.Errorf("failed to generate instance ID: %w", err)
	}

	fc := &FlowContext{
		InstanceID: instanceID,
		Context:    ctx,
		Logger:     slog.With("flow", flow.ID, "instanceID", instanceID, "guildID", i.GuildID, "userID", requester),
	}

	err = flow.Handler(s, i, fc)
	var userErr *UserError
	if errors.As(err, &userErr) {
		fc.Logger.Info("flow rejected interaction", "reason", userErr.Message)
		return s.InteractionRespond(i.Interaction, presenters.BuildMessageResponse(userErr.Message))
	}
	return err
}

func (r *Router) isBlacklisted(ctx context.Context, userID, guildID string) (bool, error) {
	if r.blacklist == nil {
		return false, nil
	}
	blocked, err := r.blacklist.IsBlacklisted(ctx, userID, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return blocked, nil
}

// InteractionCreate adapts Route to a discordgo event handler.
func (r *Router) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := r.Route(s, i); err != nil {
		slog.Error("failed to handle interaction", "error", err)
	}
}

var PingFlow = &Flow{
	ID:      "ping",
	Matcher: CommandMatcher("ping"),
	Handler: func(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
		return s.InteractionRespond(i.Interaction, presenters.BuildMessageResponse("Pong!"))
	},
}
