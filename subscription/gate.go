// Package subscription decides whether a user may use the bot based on membership in the
// configured force-subscription channels.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

// MemberStatus mirrors the chat member status strings of the Bot API.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// ErrNotParticipant is returned by a MembershipChecker when the platform reports that the
// user has never joined the chat. It counts as a denial, unlike other lookup errors.
var ErrNotParticipant = errors.New("user is not a participant")

// MembershipChecker looks up the status of userID in chatID.
type MembershipChecker interface {
	ChatMemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error)
}

type Channel struct {
	ID   int64
	Link string
	Name string
}

// JoinAction is a button that sends the user to a channel they must join.
type JoinAction struct {
	Text string
	URL  string
}

type Result struct {
	Allowed     bool
	JoinActions []JoinAction
}

type Gate struct {
	checker  MembershipChecker
	channels []Channel
}

// NewGate builds a gate from normalized channel configs; entries with an unparsable id
// are skipped.
func NewGate(checker MembershipChecker, configs []types.ChannelConfig) *Gate {
	channels := make([]Channel, 0, len(configs))
	for _, c := range configs {
		id, err := strconv.ParseInt(c.ID, 10, 64)
		if err != nil {
			tool.DefaultLogger.Errorf("Invalid channel ID format for %s channel: %s", c.Name, c.ID)
			continue
		}
		channels = append(channels, Channel{ID: id, Link: c.Link, Name: c.Name})
	}
	return &Gate{checker: checker, channels: channels}
}

// Check walks the channels in configured order and denies on the first channel where the
// user is not an active member. Lookup failures other than ErrNotParticipant skip the
// channel.
func (g *Gate) Check(ctx context.Context, userID int64) Result {
	for _, ch := range g.channels {
		status, err := g.checker.ChatMemberStatus(ctx, ch.ID, userID)
		if err != nil {
			if errors.Is(err, ErrNotParticipant) {
				return g.denied()
			}
			tool.DefaultLogger.Errorf("Error checking subscription in %s (%d): %v", ch.Name, ch.ID, err)
			continue
		}
		if !isActiveMember(status) {
			tool.DefaultLogger.Debugf("User %d denied by channel %s: status %s", userID, ch.Name, status)
			return g.denied()
		}
	}
	return Result{Allowed: true}
}

// JoinActions lists one join button per configured channel.
func (g *Gate) JoinActions() []JoinAction {
	actions := make([]JoinAction, 0, len(g.channels))
	for _, ch := range g.channels {
		actions = append(actions, JoinAction{
			Text: fmt.Sprintf("📢 Join %s Channel", ch.Name),
			URL:  ch.Link,
		})
	}
	return actions
}

func (g *Gate) denied() Result {
	return Result{Allowed: false, JoinActions: g.JoinActions()}
}

func isActiveMember(status MemberStatus) bool {
	switch status {
	case StatusMember, StatusAdministrator, StatusCreator:
		return true
	default:
		return false
	}
}
