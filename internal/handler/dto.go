package handler

import "github.com/iliyamo/cinema-catalog/internal/model"

// movieRequest is the body of movie create, update and search requests.
// Every field is optional; absent and null fields stay nil.
type movieRequest struct {
	ID          *uint64     `json:"id"`
	Name        *string     `json:"name"`
	ReleaseDate *model.Date `json:"releaseDate"`
	Cost        *int        `json:"cost"`
}

func (r movieRequest) input() model.MovieInput {
	return model.MovieInput{ID: r.ID, Name: r.Name, ReleaseDate: r.ReleaseDate, Cost: r.Cost}
}

func (r movieRequest) criteria() model.MovieCriteria {
	return model.MovieCriteria{Name: r.Name, Cost: r.Cost, ReleaseDate: r.ReleaseDate}
}

type orderRequest struct {
	ID           *uint64     `json:"id"`
	MovieID      *uint64     `json:"movieId"`
	OrderTime    *model.Date `json:"orderTime"`
	Participants *int        `json:"participants"`
}

func (r orderRequest) input() model.OrderInput {
	return model.OrderInput{ID: r.ID, MovieID: r.MovieID, OrderTime: r.OrderTime, Participants: r.Participants}
}

func (r orderRequest) criteria() model.OrderCriteria {
	return model.OrderCriteria{MovieID: r.MovieID, OrderTime: r.OrderTime, Participants: r.Participants}
}

type orderResponse struct {
	ID           uint64     `json:"id"`
	MovieID      uint64     `json:"movieId"`
	OrderTime    model.Date `json:"orderTime"`
	Participants int        `json:"participants"`
}

// movieResponse always carries the movie's orders.
type movieResponse struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	ReleaseDate model.Date      `json:"releaseDate"`
	Cost        int             `json:"cost"`
	Orders      []orderResponse `json:"orders"`
}

type pageResponse[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{ID: o.ID, MovieID: o.MovieID, OrderTime: o.OrderTime, Participants: o.Participants}
}

func toMovieResponse(m model.Movie) movieResponse {
	orders := make([]orderResponse, 0, len(m.Orders))
	for _, o := range m.Orders {
		orders = append(orders, toOrderResponse(o))
	}
	return movieResponse{ID: m.ID, Name: m.Name, ReleaseDate: m.ReleaseDate, Cost: m.Cost, Orders: orders}
}

func toPageResponse[T, U any](p *model.Page[T], fn func(T) U) pageResponse[U] {
	mapped := model.Map(p, fn)
	return pageResponse[U]{
		Content:       mapped.Content,
		Page:          mapped.Number,
		Size:          mapped.Size,
		TotalElements: mapped.TotalElements,
		TotalPages:    mapped.TotalPages,
	}
}
