// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package keystone

// Session is the result of one authentication: a token valid for every
// per-tenant storage connection of the run, plus the service catalog the
// token was issued with. The token is read-only shared state and safe for
// concurrent reuse across workers.
type Session struct {
	Token   string
	Catalog []Service
}

// Service is one catalog entry.
type Service struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint is one interface binding of a catalog service.
type Endpoint struct {
	Interface string `json:"interface"`
	Region    string `json:"region"`
	URL       string `json:"url"`
}

// Project is a tenant as listed by the identity service.
type Project struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type authRequest struct {
	Auth authBody `json:"auth"`
}

type authBody struct {
	Identity authIdentity `json:"identity"`
	Scope    *authScope   `json:"scope,omitempty"`
}

type authIdentity struct {
	Methods  []string     `json:"methods"`
	Password authPassword `json:"password"`
}

type authPassword struct {
	User authUser `json:"user"`
}

type authUser struct {
	Name     string     `json:"name"`
	Domain   authDomain `json:"domain"`
	Password string     `json:"password"`
}

type authDomain struct {
	Name string `json:"name"`
}

type authScope struct {
	Project authScopeProject `json:"project"`
}

type authScopeProject struct {
	Name   string     `json:"name"`
	Domain authDomain `json:"domain"`
}

type authResponse struct {
	Token struct {
		Catalog []Service `json:"catalog"`
	} `json:"token"`
}

type projectsResponse struct {
	Projects []Project `json:"projects"`
}
