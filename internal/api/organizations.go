package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Review-Corral/review-corral-next/internal/store"
)

// getInstallationRepositories lists the repositories a GitHub App
// installation grants access to, using a freshly issued installation token.
func (s *Server) getInstallationRepositories(c echo.Context) error {
	installationID, err := strconv.ParseInt(c.Param("installationId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid installation id",
		})
	}

	ctx := c.Request().Context()

	token, err := s.tokens.IssueInstallationToken(ctx, installationID)
	if err != nil {
		s.logger.Error().Err(err).Int64("installation_id", installationID).Msg("Failed to issue installation token")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to authenticate with GitHub",
		})
	}

	repos, err := s.github.GetInstallationRepositories(ctx, token.Token)
	if err != nil {
		s.logger.Error().Err(err).Int64("installation_id", installationID).Msg("Failed to list installation repositories")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to list repositories",
		})
	}

	return c.JSON(http.StatusOK, repos)
}

// getOrganizationMembers lists the GitHub members of an organization so the
// dashboard can offer them for username mapping.
func (s *Server) getOrganizationMembers(c echo.Context) error {
	org, errResp := s.organizationFromParam(c)
	if org == nil {
		return errResp
	}

	ctx := c.Request().Context()

	token, err := s.tokens.IssueInstallationToken(ctx, org.InstallationID)
	if err != nil {
		s.logger.Error().Err(err).Int64("organization_id", org.ID).Msg("Failed to issue installation token")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to authenticate with GitHub",
		})
	}

	members, err := s.github.GetOrgMembers(ctx, org.Name, token.Token)
	if err != nil {
		s.logger.Error().Err(err).Int64("organization_id", org.ID).Msg("Failed to list organization members")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to list organization members",
		})
	}

	return c.JSON(http.StatusOK, members)
}

// getUsernameMappings lists an organization's GitHub-to-Slack username mappings
func (s *Server) getUsernameMappings(c echo.Context) error {
	org, errResp := s.organizationFromParam(c)
	if org == nil {
		return errResp
	}

	mappings, err := s.usernames.ListMappings(c.Request().Context(), org.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("organization_id", org.ID).Msg("Failed to list username mappings")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list username mappings",
		})
	}

	return c.JSON(http.StatusOK, mappings)
}

type usernameMappingRequest struct {
	GithubLogin string `json:"github_login"`
	SlackUserID string `json:"slack_user_id"`
}

// putUsernameMapping creates or replaces one GitHub-to-Slack username mapping
func (s *Server) putUsernameMapping(c echo.Context) error {
	org, errResp := s.organizationFromParam(c)
	if org == nil {
		return errResp
	}

	var req usernameMappingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	if req.GithubLogin == "" || req.SlackUserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "github_login and slack_user_id are required",
		})
	}

	mapping := store.UsernameMapping{
		OrganizationID: org.ID,
		GithubLogin:    req.GithubLogin,
		SlackUserID:    req.SlackUserID,
	}
	if err := s.usernames.UpsertMapping(c.Request().Context(), mapping); err != nil {
		s.logger.Error().Err(err).Int64("organization_id", org.ID).Msg("Failed to upsert username mapping")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to save username mapping",
		})
	}

	return c.JSON(http.StatusOK, mapping)
}

// organizationFromParam resolves the :orgId path parameter. On failure the
// error response has already been written and the returned organization is
// nil; callers must stop and return the second value.
func (s *Server) organizationFromParam(c echo.Context) (*store.Organization, error) {
	orgID, err := strconv.ParseInt(c.Param("orgId"), 10, 64)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid organization id",
		})
	}

	org, err := s.orgs.OrganizationByID(c.Request().Context(), orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, c.JSON(http.StatusNotFound, map[string]string{
				"error": "organization not found",
			})
		}
		s.logger.Error().Err(err).Int64("organization_id", orgID).Msg("Failed to look up organization")
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "organization lookup failed",
		})
	}

	return org, nil
}
