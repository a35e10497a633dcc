package services

import (
	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/team"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

func requireUser(dbc dbctx.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthorized", "authentication required")
	}
	return rd, nil
}

// accountRole resolves the caller's role on ownerUserID's account: "owner",
// a team role, or "" when the caller has no access.
func accountRole(dbc dbctx.Context, members repos.TeamMemberRepo, ownerUserID, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", nil
	}
	if userID == ownerUserID {
		return "owner", nil
	}
	if members == nil {
		return "", nil
	}
	m, err := members.Get(dbc, ownerUserID, userID)
	if err != nil || m == nil {
		return "", err
	}
	return m.Role, nil
}

func canAdminister(role string) bool {
	return role == "owner" || role == team.RoleAdmin
}

// agentAccess loads an agent and the caller's role on its account. Agents the
// caller cannot see are reported as not found.
func agentAccess(dbc dbctx.Context, agents repos.AgentRepo, members repos.TeamMemberRepo, agentID, userID uuid.UUID) (*types.Agent, string, error) {
	if agentID == uuid.Nil {
		return nil, "", apierr.BadRequest("invalid_agent_id", "agentId is required")
	}
	agent, err := agents.GetByID(dbc, agentID)
	if err != nil {
		return nil, "", err
	}
	if agent == nil {
		return nil, "", apierr.NotFound("agent_not_found", "agent %s not found", agentID)
	}
	role, err := accountRole(dbc, members, agent.OwnerUserID, userID)
	if err != nil {
		return nil, "", err
	}
	if role == "" {
		return nil, "", apierr.NotFound("agent_not_found", "agent %s not found", agentID)
	}
	return agent, role, nil
}
