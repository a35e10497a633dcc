package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	wpdomain "github.com/yungbote/leadchat-backend/internal/domain/wordpress"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/httpx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/platform/wordpress"
	"github.com/yungbote/leadchat-backend/internal/wpsync"
)

const (
	WordPressActionTest       = "test"
	WordPressActionSync       = "sync"
	WordPressActionSave       = "save"
	WordPressActionDiscover   = "discover"
	WordPressActionDisconnect = "disconnect"

	discoverSampleSize = 5
)

// Post types every site has; never candidates for community or home data.
var builtinPostTypes = map[string]bool{
	"post": true, "page": true, "attachment": true, "nav_menu_item": true,
	"wp_block": true, "wp_template": true, "wp_template_part": true,
	"wp_navigation": true, "wp_global_styles": true, "wp_font_family": true,
	"wp_font_face": true,
}

type WordPressRequest struct {
	Action            string
	AgentID           uuid.UUID
	SiteURL           string
	Username          string
	AppPassword       string
	CommunityEndpoint string
	HomeEndpoint      string
	FieldMapping      *types.WordPressFieldMapping
	ModifiedAfter     *time.Time
}

type WordPressTestResult struct {
	OK         bool     `json:"ok"`
	SiteName   string   `json:"siteName,omitempty"`
	Namespaces []string `json:"namespaces,omitempty"`
	HasACF     bool     `json:"hasAcf"`
	Error      string   `json:"error,omitempty"`
}

type EndpointCandidate struct {
	Endpoint   string                `json:"endpoint"`
	Kind       string                `json:"kind"`
	Confidence float64               `json:"confidence"`
	Source     string                `json:"source"`
	Total      int                   `json:"total"`
	Details    wpsync.Classification `json:"classification"`
}

type WordPressDiscoverResult struct {
	CommunityEndpoint string                      `json:"communityEndpoint,omitempty"`
	HomeEndpoint      string                      `json:"homeEndpoint,omitempty"`
	Candidates        []EndpointCandidate         `json:"candidates"`
	SuggestedMapping  types.WordPressFieldMapping `json:"suggestedMapping"`
}

type CollectionSyncResult struct {
	Total     int   `json:"total"`
	Created   int   `json:"created"`
	Updated   int   `json:"updated"`
	Unchanged int   `json:"unchanged"`
	Deleted   int64 `json:"deleted"`
	Skipped   int   `json:"skipped,omitempty"`
}

type WordPressSyncResult struct {
	Full        bool                  `json:"full"`
	Communities *CollectionSyncResult `json:"communities,omitempty"`
	Homes       *CollectionSyncResult `json:"homes,omitempty"`
}

type WordPressDisconnectResult struct {
	Disconnected     bool  `json:"disconnected"`
	DeletedLocations int64 `json:"deletedLocations"`
	DeletedHomes     int64 `json:"deletedHomes"`
}

type WordPressService interface {
	// Handle dispatches on req.Action.
	Handle(dbc dbctx.Context, req WordPressRequest) (any, error)
	Test(dbc dbctx.Context, req WordPressRequest) (*WordPressTestResult, error)
	Discover(dbc dbctx.Context, req WordPressRequest) (*WordPressDiscoverResult, error)
	Save(dbc dbctx.Context, req WordPressRequest) (*types.WordPressConnection, error)
	Sync(dbc dbctx.Context, req WordPressRequest) (*WordPressSyncResult, error)
	Disconnect(dbc dbctx.Context, agentID uuid.UUID) (*WordPressDisconnectResult, error)
	// SyncActive runs an incremental sync for every active connection.
	SyncActive(ctx context.Context) (synced int, err error)
}

type wordPressService struct {
	log         *logger.Logger
	runner      txn.Runner
	client      wordpress.Client
	connections repos.WordPressConnectionRepo
	locations   repos.LocationRepo
	properties  repos.PropertyRepo
	agents      repos.AgentRepo
	members     repos.TeamMemberRepo
}

func NewWordPressService(
	baseLog *logger.Logger,
	runner txn.Runner,
	client wordpress.Client,
	connections repos.WordPressConnectionRepo,
	locations repos.LocationRepo,
	properties repos.PropertyRepo,
	agents repos.AgentRepo,
	members repos.TeamMemberRepo,
) WordPressService {
	return &wordPressService{
		log:         baseLog.With("service", "WordPressService"),
		runner:      runner,
		client:      client,
		connections: connections,
		locations:   locations,
		properties:  properties,
		agents:      agents,
		members:     members,
	}
}

func (s *wordPressService) Handle(dbc dbctx.Context, req WordPressRequest) (any, error) {
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case WordPressActionTest:
		return s.Test(dbc, req)
	case WordPressActionDiscover:
		return s.Discover(dbc, req)
	case WordPressActionSave:
		return s.Save(dbc, req)
	case WordPressActionSync:
		return s.Sync(dbc, req)
	case WordPressActionDisconnect:
		return s.Disconnect(dbc, req.AgentID)
	default:
		return nil, apierr.BadRequest("invalid_action", "unknown action %q", req.Action)
	}
}

func (s *wordPressService) Test(dbc dbctx.Context, req WordPressRequest) (*WordPressTestResult, error) {
	conn, err := s.resolve(dbc, req, false)
	if err != nil {
		return nil, err
	}
	info, err := s.client.Ping(dbc.Ctx, conn.SiteURL, credentials(conn))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return &WordPressTestResult{OK: false, Error: err.Error()}, nil
	}
	out := &WordPressTestResult{OK: true, SiteName: info.Name, Namespaces: info.Namespaces}
	for _, ns := range info.Namespaces {
		if strings.HasPrefix(ns, "acf/") {
			out.HasACF = true
		}
	}
	return out, nil
}

func (s *wordPressService) Discover(dbc dbctx.Context, req WordPressRequest) (*WordPressDiscoverResult, error) {
	conn, err := s.resolve(dbc, req, false)
	if err != nil {
		return nil, err
	}
	ctx, creds := dbc.Ctx, credentials(conn)
	out := &WordPressDiscoverResult{Candidates: []EndpointCandidate{}}
	samples := map[string][]wordpress.Record{}
	tried := map[string]bool{}

	for _, slug := range wpsync.ProbeSlugs() {
		tried[slug] = true
		page, err := s.client.FetchPage(ctx, conn.SiteURL, creds, slug, 1, discoverSampleSize, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		kind := wpsync.KindForSlug(slug)
		cls := wpsync.ClassifyEndpoint(asMaps(page.Records))
		confidence := 0.6
		if cls.Kind == kind && cls.Confidence > 0.8 {
			confidence = cls.Confidence
		} else if cls.Kind == kind {
			confidence = 0.8
		}
		samples[slug] = page.Records
		out.Candidates = append(out.Candidates, EndpointCandidate{
			Endpoint: slug, Kind: kind, Confidence: confidence, Source: "probe", Total: page.Total, Details: cls,
		})
	}

	postTypes, err := s.client.ListTypes(ctx, conn.SiteURL, creds)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn("WordPress type listing failed", "agent_id", conn.AgentID, "error", err)
	}
	for _, pt := range postTypes {
		if builtinPostTypes[pt.Slug] || tried[pt.RestBase] {
			continue
		}
		tried[pt.RestBase] = true
		page, err := s.client.FetchPage(ctx, conn.SiteURL, creds, pt.RestBase, 1, discoverSampleSize, nil)
		if err != nil || len(page.Records) == 0 {
			continue
		}
		cls := wpsync.ClassifyEndpoint(asMaps(page.Records))
		if cls.Kind == wpsync.KindUnknown {
			continue
		}
		samples[pt.RestBase] = page.Records
		out.Candidates = append(out.Candidates, EndpointCandidate{
			Endpoint: pt.RestBase, Kind: cls.Kind, Confidence: cls.Confidence, Source: "schema", Total: page.Total, Details: cls,
		})
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		a, b := out.Candidates[i], out.Candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Total > b.Total
	})
	for _, c := range out.Candidates {
		switch {
		case c.Kind == wpsync.KindCommunity && out.CommunityEndpoint == "":
			out.CommunityEndpoint = c.Endpoint
		case c.Kind == wpsync.KindHome && out.HomeEndpoint == "":
			out.HomeEndpoint = c.Endpoint
		}
	}
	if recs := samples[out.CommunityEndpoint]; len(recs) > 0 {
		out.SuggestedMapping.Community = wpsync.EffectiveMapping(wpsync.KindCommunity, nil, recs[0])
	}
	if recs := samples[out.HomeEndpoint]; len(recs) > 0 {
		out.SuggestedMapping.Home = wpsync.EffectiveMapping(wpsync.KindHome, nil, recs[0])
	}
	return out, nil
}

func (s *wordPressService) Save(dbc dbctx.Context, req WordPressRequest) (*types.WordPressConnection, error) {
	conn, err := s.resolve(dbc, req, true)
	if err != nil {
		return nil, err
	}
	conn.Status = wpdomain.ConnectionActive
	conn.LastError = ""
	conn.UpdatedAt = time.Now().UTC()
	saved, err := s.connections.Upsert(dbc, conn)
	if err != nil {
		return nil, err
	}
	s.log.Info("WordPress connection saved", "agent_id", saved.AgentID, "site", saved.SiteURL)
	return saved, nil
}

func (s *wordPressService) Sync(dbc dbctx.Context, req WordPressRequest) (*WordPressSyncResult, error) {
	if _, err := s.authorize(dbc, req.AgentID, true); err != nil {
		return nil, err
	}
	conn, err := s.connections.GetByAgent(dbc, req.AgentID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, apierr.NotFound("wordpress_not_connected", "no WordPress connection for agent %s", req.AgentID)
	}
	if req.CommunityEndpoint != "" {
		conn.CommunityEndpoint = req.CommunityEndpoint
	}
	if req.HomeEndpoint != "" {
		conn.HomeEndpoint = req.HomeEndpoint
	}
	if conn.CommunityEndpoint == "" && conn.HomeEndpoint == "" {
		return nil, apierr.BadRequest("missing_endpoints", "configure a community or home endpoint before syncing")
	}
	return s.syncConnection(dbc.Ctx, conn, req.ModifiedAfter)
}

func (s *wordPressService) Disconnect(dbc dbctx.Context, agentID uuid.UUID) (*WordPressDisconnectResult, error) {
	if _, err := s.authorize(dbc, agentID, true); err != nil {
		return nil, err
	}
	out := &WordPressDisconnectResult{}
	err := s.runner.InTx(dbc.Ctx, func(tx dbctx.Context) error {
		n, err := s.connections.DeleteByAgent(tx, agentID)
		if err != nil {
			return err
		}
		out.Disconnected = n > 0
		if out.DeletedLocations, err = s.locations.DeleteMissing(tx, agentID, nil); err != nil {
			return err
		}
		out.DeletedHomes, err = s.properties.DeleteMissing(tx, agentID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *wordPressService) SyncActive(ctx context.Context) (int, error) {
	conns, err := s.connections.ListActive(dbctx.Of(ctx))
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, conn := range conns {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if _, err := s.syncConnection(ctx, conn, conn.LastSyncAt); err != nil {
			s.log.Warn("Scheduled WordPress sync failed", "agent_id", conn.AgentID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// syncConnection mirrors both collections. A nil modifiedAfter is a full sync
// and deletes rows that are gone upstream.
func (s *wordPressService) syncConnection(ctx context.Context, conn *types.WordPressConnection, modifiedAfter *time.Time) (*WordPressSyncResult, error) {
	started := time.Now().UTC()
	creds := credentials(conn)
	mapping := conn.FieldMapping.Data()
	out := &WordPressSyncResult{Full: modifiedAfter == nil}

	run := func() error {
		if conn.CommunityEndpoint != "" {
			recs, err := s.client.FetchAll(ctx, conn.SiteURL, creds, conn.CommunityEndpoint, modifiedAfter)
			if err != nil {
				return fmt.Errorf("communities: %w", err)
			}
			res, err := s.syncLocations(ctx, conn.AgentID, recs, mapping.Community, out.Full)
			if err != nil {
				return fmt.Errorf("communities: %w", err)
			}
			out.Communities = res
		}
		if conn.HomeEndpoint != "" {
			recs, err := s.client.FetchAll(ctx, conn.SiteURL, creds, conn.HomeEndpoint, modifiedAfter)
			if err != nil {
				return fmt.Errorf("homes: %w", err)
			}
			res, err := s.syncProperties(ctx, conn.AgentID, recs, mapping.Home, out.Full)
			if err != nil {
				return fmt.Errorf("homes: %w", err)
			}
			out.Homes = res
		}
		return nil
	}

	if err := run(); err != nil {
		s.recordSync(ctx, conn, map[string]interface{}{
			"status":     wpdomain.ConnectionError,
			"last_error": err.Error(),
		})
		if status := httpx.StatusCode(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, apierr.New(http.StatusBadGateway, "wordpress_auth_failed", err)
		}
		return nil, err
	}

	resultJSON, _ := json.Marshal(out)
	s.recordSync(ctx, conn, map[string]interface{}{
		"status":           wpdomain.ConnectionActive,
		"last_error":       "",
		"last_sync_at":     started,
		"last_sync_result": datatypes.JSON(resultJSON),
	})
	s.log.Info("WordPress sync finished", "agent_id", conn.AgentID, "full", out.Full)
	return out, nil
}

func (s *wordPressService) recordSync(ctx context.Context, conn *types.WordPressConnection, updates map[string]interface{}) {
	if err := s.connections.UpdateFields(dbctx.Of(context.WithoutCancel(ctx)), conn.ID, updates); err != nil {
		s.log.Warn("WordPress sync status not recorded", "agent_id", conn.AgentID, "error", err)
	}
}

func (s *wordPressService) syncLocations(ctx context.Context, agentID uuid.UUID, recs []wordpress.Record, saved map[string]string, full bool) (*CollectionSyncResult, error) {
	mapping := effectiveMapping(wpsync.KindCommunity, saved, recs)
	build := func(rec map[string]any) (*types.Location, int64, string, error) {
		loc, err := wpsync.BuildLocation(agentID, rec, mapping)
		if err != nil {
			return nil, 0, "", err
		}
		return loc, loc.WPID, loc.ContentHash, nil
	}
	var out *CollectionSyncResult
	err := s.runner.InTx(ctx, func(tx dbctx.Context) error {
		var err error
		out, err = mirrorCollection[types.Location](tx, s.locations, agentID, recs, build, full)
		return err
	})
	return out, err
}

func (s *wordPressService) syncProperties(ctx context.Context, agentID uuid.UUID, recs []wordpress.Record, saved map[string]string, full bool) (*CollectionSyncResult, error) {
	mapping := effectiveMapping(wpsync.KindHome, saved, recs)
	build := func(rec map[string]any) (*types.Property, int64, string, error) {
		p, err := wpsync.BuildProperty(agentID, rec, mapping)
		if err != nil {
			return nil, 0, "", err
		}
		return p, p.WPID, p.ContentHash, nil
	}
	var out *CollectionSyncResult
	err := s.runner.InTx(ctx, func(tx dbctx.Context) error {
		var err error
		out, err = mirrorCollection[types.Property](tx, s.properties, agentID, recs, build, full)
		return err
	})
	return out, err
}

type mirrorStore[T any] interface {
	Index(dbc dbctx.Context, agentID uuid.UUID) (map[int64]repos.MirrorRow, error)
	Create(dbc dbctx.Context, row *T) error
	Replace(dbc dbctx.Context, id uuid.UUID, row *T) error
	DeleteMissing(dbc dbctx.Context, agentID uuid.UUID, keepWPIDs []int64) (int64, error)
}

// mirrorCollection upserts records by wp_id and skips rows whose content
// hash is unchanged.
func mirrorCollection[T any](
	dbc dbctx.Context,
	store mirrorStore[T],
	agentID uuid.UUID,
	recs []wordpress.Record,
	build func(rec map[string]any) (*T, int64, string, error),
	full bool,
) (*CollectionSyncResult, error) {
	index, err := store.Index(dbc, agentID)
	if err != nil {
		return nil, err
	}
	out := &CollectionSyncResult{Total: len(recs)}
	seen := make(map[int64]bool, len(recs))
	keep := make([]int64, 0, len(recs))
	for _, rec := range recs {
		row, wpID, hash, err := build(rec)
		if err != nil || seen[wpID] {
			out.Skipped++
			continue
		}
		seen[wpID] = true
		keep = append(keep, wpID)

		existing, ok := index[wpID]
		switch {
		case ok && existing.ContentHash == hash:
			out.Unchanged++
		case ok:
			if err := store.Replace(dbc, existing.ID, row); err != nil {
				return nil, fmt.Errorf("replace wp_id %d: %w", wpID, err)
			}
			out.Updated++
		default:
			if err := store.Create(dbc, row); err != nil {
				return nil, fmt.Errorf("create wp_id %d: %w", wpID, err)
			}
			out.Created++
		}
	}
	if full {
		if out.Deleted, err = store.DeleteMissing(dbc, agentID, keep); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolve merges request fields over the saved connection. forSave also
// requires administrator rights on the agent's account.
func (s *wordPressService) resolve(dbc dbctx.Context, req WordPressRequest, forSave bool) (*types.WordPressConnection, error) {
	if _, err := s.authorize(dbc, req.AgentID, forSave); err != nil {
		return nil, err
	}
	conn, err := s.connections.GetByAgent(dbc, req.AgentID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		conn = &types.WordPressConnection{AgentID: req.AgentID}
	}
	if req.SiteURL != "" {
		site, err := wordpress.NormalizeSiteURL(req.SiteURL)
		if err != nil {
			return nil, apierr.BadRequest("invalid_site_url", "%v", err)
		}
		conn.SiteURL = site
	}
	if conn.SiteURL == "" {
		return nil, apierr.BadRequest("missing_site_url", "siteUrl is required")
	}
	if req.Username != "" {
		conn.Username = strings.TrimSpace(req.Username)
	}
	if req.AppPassword != "" {
		conn.AppPassword = req.AppPassword
	}
	if req.CommunityEndpoint != "" {
		conn.CommunityEndpoint = strings.TrimSpace(req.CommunityEndpoint)
	}
	if req.HomeEndpoint != "" {
		conn.HomeEndpoint = strings.TrimSpace(req.HomeEndpoint)
	}
	if req.FieldMapping != nil {
		conn.FieldMapping = datatypes.NewJSONType(*req.FieldMapping)
	}
	return conn, nil
}

func (s *wordPressService) authorize(dbc dbctx.Context, agentID uuid.UUID, admin bool) (*types.Agent, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	agent, role, err := agentAccess(dbc, s.agents, s.members, agentID, rd.UserID)
	if err != nil {
		return nil, err
	}
	if admin && !canAdminister(role) {
		return nil, apierr.Forbidden("forbidden", "only the account owner or an admin can change the WordPress connection")
	}
	return agent, nil
}

func credentials(conn *types.WordPressConnection) wordpress.Credentials {
	return wordpress.Credentials{Username: conn.Username, AppPassword: conn.AppPassword}
}

func effectiveMapping(kind string, saved map[string]string, recs []wordpress.Record) map[string]string {
	var sample map[string]any
	if len(recs) > 0 {
		sample = recs[0]
	}
	return wpsync.EffectiveMapping(kind, saved, sample)
}

func asMaps(recs []wordpress.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out
}
