package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

// Mock Campaign Repository for pagination
type MockCampaignPaginationRepo struct{}

func (m *MockCampaignPaginationRepo) ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	all := []*model.Campaign{
		{ID: "5", Name: "C5"},
		{ID: "4", Name: "C4"},
		{ID: "3", Name: "C3"},
		{ID: "2", Name: "C2"},
		{ID: "1", Name: "C1"},
	}

	start := offset
	end := offset + limit

	if start >= len(all) {
		return []*model.Campaign{}, len(all), nil
	}
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], len(all), nil
}

// Stub implementations to satisfy the interface
func (m *MockCampaignPaginationRepo) Create(ctx context.Context, c *model.Campaign) error {
	c.ID = "999" // fake ID
	return nil
}

func (m *MockCampaignPaginationRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	return &model.Campaign{ID: id, Name: "Mock"}, nil
}

func (m *MockCampaignPaginationRepo) Update(ctx context.Context, c *model.Campaign) error {
	return nil
}

func (m *MockCampaignPaginationRepo) Modify(ctx context.Context, id string, fn func(c *model.Campaign) error) (*model.Campaign, error) {
	c := &model.Campaign{ID: id}
	return c, fn(c)
}

func (m *MockCampaignPaginationRepo) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error) {
	return &model.Campaign{ID: id, Status: status}, nil
}

func (m *MockCampaignPaginationRepo) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error) {
	return nil, nil
}

func (m *MockCampaignPaginationRepo) ListAll(ctx context.Context) ([]model.Campaign, error) {
	return nil, nil
}

func (m *MockCampaignPaginationRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func TestPagination(t *testing.T) {
	svc := &service.CampaignService{
		CampaignRepo: &MockCampaignPaginationRepo{},
	}
	ctx := context.Background()

	pageSize := 2

	page1, pagination1, _ := svc.ListCampaigns(ctx, 1, pageSize, "")
	page2, _, _ := svc.ListCampaigns(ctx, 2, pageSize, "")

	expectedTotal := 5
	if pagination1["total_count"] != expectedTotal {
		t.Errorf("expected total_count %d, got %d", expectedTotal, pagination1["total_count"])
	}
	if pagination1["total_pages"] != 3 {
		t.Errorf("expected total_pages 3, got %d", pagination1["total_pages"])
	}

	if len(page1) != 2 || len(page2) != 2 {
		t.Fatalf("expected full pages, got %d and %d", len(page1), len(page2))
	}

	// Check descending order
	if page1[0].ID <= page1[1].ID {
		t.Errorf("expected descending order in page 1")
	}
	if page2[0].ID <= page2[1].ID {
		t.Errorf("expected descending order in page 2")
	}

	// Check no duplicates between pages
	if page1[1].ID == page2[0].ID {
		t.Errorf("duplicate entry between pages: %v", page1[1].ID)
	}

	page3, pagination3, _ := svc.ListCampaigns(ctx, 3, pageSize, "")
	if len(page3) != 1 {
		t.Errorf("expected last page to have 1 item, got %d", len(page3))
	}

	if pagination3["total_count"] != expectedTotal {
		t.Errorf("expected total_count %d, got %d", expectedTotal, pagination3["total_count"])
	}
}

func TestPaginationDefaults(t *testing.T) {
	svc := &service.CampaignService{
		CampaignRepo: &MockCampaignPaginationRepo{},
	}

	for _, tc := range []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 20},
		{-3, 500, 1, 100},
		{2, 7, 2, 7},
	} {
		t.Run(fmt.Sprintf("page=%d,size=%d", tc.page, tc.size), func(t *testing.T) {
			_, pagination, err := svc.ListCampaigns(context.Background(), tc.page, tc.size, "")
			if err != nil {
				t.Fatal(err)
			}
			if pagination["page"] != tc.wantPage || pagination["page_size"] != tc.wantSize {
				t.Errorf("expected page %d size %d, got %v", tc.wantPage, tc.wantSize, pagination)
			}
		})
	}
}
