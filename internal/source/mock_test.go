package source

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadgen-cli/pkg/exa"
	"github.com/sells-group/leadgen-cli/pkg/jina"
)

type mockExa struct {
	mock.Mock
}

func (m *mockExa) FindSimilar(ctx context.Context, seedURL string, numResults int) (*exa.FindSimilarResponse, error) {
	args := m.Called(ctx, seedURL, numResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exa.FindSimilarResponse), args.Error(1)
}

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Read(ctx context.Context, targetURL string) (*jina.Page, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.Page), args.Error(1)
}
