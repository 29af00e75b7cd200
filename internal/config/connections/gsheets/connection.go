package gsheets

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// ServiceAccount holds the fields of a service account key, read from
// GS_* variables rather than a JSON file.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

type ConnectionInfo struct {
	Account       ServiceAccount
	SpreadsheetID string
}

type GSheets struct {
	Service       *sheets.Service
	SpreadsheetID string
	ClientEmail   string
}

func (a ServiceAccount) Configured() bool {
	return a.ClientEmail != "" && a.PrivateKey != ""
}

func NewConnection(ctx context.Context, info ConnectionInfo) (*GSheets, error) {
	if !info.Account.Configured() {
		return nil, fmt.Errorf("google sheets: GS_CLIENT_EMAIL and GS_PRIVATE_KEY are required")
	}
	if info.SpreadsheetID == "" {
		return nil, fmt.Errorf("google sheets: GS_SPREADSHEET_ID is required")
	}

	tokenURI := info.Account.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	conf := &jwt.Config{
		Email:        info.Account.ClientEmail,
		PrivateKey:   []byte(strings.ReplaceAll(info.Account.PrivateKey, `\n`, "\n")),
		PrivateKeyID: info.Account.PrivateKeyID,
		TokenURL:     tokenURI,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return &GSheets{
		Service:       srv,
		SpreadsheetID: info.SpreadsheetID,
		ClientEmail:   info.Account.ClientEmail,
	}, nil
}
