// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystone is the identity-service collaborator: it authenticates
// once per run, resolves the object-store endpoint template from the service
// catalog, and lists the tenants a run will probe.
package keystone

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackwatch/swiftmeter/pkg/logger"
	"github.com/stackwatch/swiftmeter/pkg/swift"

	"github.com/go-resty/resty/v2"
)

const subjectTokenHeader = "X-Subject-Token"

// Client talks to a Keystone v3 identity service.
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient creates an identity client for the configured auth URL.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg: cfg,
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.AuthURL, "/")).
			SetTimeout(cfg.Timeout),
	}, nil
}

// Authenticate performs password authentication and returns the session
// token together with the service catalog it was issued with.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	req := authRequest{
		Auth: authBody{
			Identity: authIdentity{
				Methods: []string{"password"},
				Password: authPassword{
					User: authUser{
						Name:     c.cfg.Username,
						Domain:   authDomain{Name: c.cfg.DomainName},
						Password: c.cfg.Password,
					},
				},
			},
		},
	}
	if c.cfg.ProjectName != "" {
		req.Auth.Scope = &authScope{
			Project: authScopeProject{
				Name:   c.cfg.ProjectName,
				Domain: authDomain{Name: c.cfg.DomainName},
			},
		}
	}

	var body authResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		Post("/v3/auth/tokens")
	if err != nil {
		return nil, fmt.Errorf("keystone: authenticate: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("keystone: authenticate: unexpected status %s", resp.Status())
	}

	token := resp.Header().Get(subjectTokenHeader)
	if token == "" {
		return nil, fmt.Errorf("keystone: authenticate: missing %s header", subjectTokenHeader)
	}

	logger.Ctx(ctx).Debug().
		Int("catalog_services", len(body.Token.Catalog)).
		Msg("authenticated against identity service")

	return &Session{Token: token, Catalog: body.Token.Catalog}, nil
}

// EndpointTemplate resolves the catalog endpoint for the given service type
// and interface into a per-tenant URL template containing one %s for the
// tenant ID. Swift catalogs publish the URL of the scoped account
// (…/v1/AUTH_<id>); the template generalizes it to any tenant.
func (s *Session) EndpointTemplate(serviceType, iface string) (string, error) {
	for _, svc := range s.Catalog {
		if svc.Type != serviceType {
			continue
		}
		for _, ep := range svc.Endpoints {
			if ep.Interface != iface {
				continue
			}
			return accountTemplate(ep.URL), nil
		}
	}
	return "", fmt.Errorf("keystone: no %s endpoint for service %q in catalog", iface, serviceType)
}

func accountTemplate(endpointURL string) string {
	url := strings.TrimRight(endpointURL, "/")
	if i := strings.LastIndex(url, "/AUTH_"); i >= 0 {
		url = url[:i]
	}
	// Literal percents in the endpoint path (percent-encoding) must
	// survive the Sprintf expansion of the tenant ID.
	return strings.ReplaceAll(url, "%", "%%") + "/AUTH_%s"
}

// Projects lists all projects visible to the session.
func (c *Client) Projects(ctx context.Context, session *Session) ([]Project, error) {
	var body projectsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Auth-Token", session.Token).
		SetResult(&body).
		Get("/v3/projects")
	if err != nil {
		return nil, fmt.Errorf("keystone: list projects: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("keystone: list projects: unexpected status %s", resp.Status())
	}
	return body.Projects, nil
}

// Directory adapts a client and session into the tenant directory the
// collection run consumes.
type Directory struct {
	client   *Client
	session  *Session
	template string
}

// NewDirectory resolves the public object-store endpoint template and
// returns a directory bound to the session.
func NewDirectory(client *Client, session *Session) (*Directory, error) {
	template, err := session.EndpointTemplate("object-store", "public")
	if err != nil {
		return nil, err
	}
	return &Directory{client: client, session: session, template: template}, nil
}

// Tenants lists projects and maps each to a tenant with its storage account
// URL. A non-empty filter restricts the result to tenants whose name or ID
// is in the set; disabled projects are skipped either way.
func (d *Directory) Tenants(ctx context.Context, filter []string) ([]swift.Tenant, error) {
	projects, err := d.client.Projects(ctx, d.session)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(filter))
	for _, f := range filter {
		wanted[f] = struct{}{}
	}

	tenants := make([]swift.Tenant, 0, len(projects))
	for _, p := range projects {
		if !p.Enabled {
			continue
		}
		if len(wanted) > 0 {
			if _, byName := wanted[p.Name]; !byName {
				if _, byID := wanted[p.ID]; !byID {
					continue
				}
			}
		}
		tenants = append(tenants, swift.Tenant{
			ID:         p.ID,
			Name:       p.Name,
			StorageURL: fmt.Sprintf(d.template, p.ID),
		})
	}
	return tenants, nil
}
