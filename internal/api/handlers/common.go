package handlers

import (
	"image"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"no session is running"`
}

type SuccessResponse struct {
	Message string `json:"message" example:"Session stopped"`
}

// PointRequest is a polygon vertex in frame pixels
type PointRequest struct {
	X int `json:"x" example:"120"`
	Y int `json:"y" example:"340"`
}

func toPolygon(points []PointRequest) []image.Point {
	poly := make([]image.Point, len(points))
	for i, p := range points {
		poly[i] = image.Pt(p.X, p.Y)
	}
	return poly
}

func toPointRequests(poly []image.Point) []PointRequest {
	points := make([]PointRequest, len(poly))
	for i, p := range poly {
		points[i] = PointRequest{X: p.X, Y: p.Y}
	}
	return points
}

func writeJPEG(c *gin.Context, jpeg []byte) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}
