package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"vocab-quiz-service/internal/app"
	"vocab-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	topN     int
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, topN int) *WSHandler {
	if topN <= 0 {
		topN = 10
	}
	return &WSHandler{
		service: service,
		topN:    topN,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Level int `json:"level"` // 0 = all levels
}

type answerPayload struct {
	Label string `json:"label"`
}

type rankingPayload struct {
	WeekID string `json:"weekId"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	Label      string `json:"label"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	Combo      int    `json:"combo"`
	Score      int    `json:"score"`
	Recorded   bool   `json:"recorded"`
}

type rankingReply struct {
	WeekID    string              `json:"weekId"`
	Weeks     []string            `json:"weeks"`
	WeeklyTop []domain.RankingRow `json:"weeklyTop"`
	TotalTop  []domain.RankingRow `json:"totalTop"`
	MyRank    *domain.RankingRow  `json:"myRank"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and drives one player's game loop:
// start -> question, answer -> answerResult (+ next question or result),
// stop -> result, ranking -> leaderboard snapshot.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := h.service.Session(userID, displayName)
	defer h.service.Drop(userID)

	send := make(chan outboundMessage[any], 16)
	expired := make(chan domain.SessionResult, 1)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	expireDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// The countdown ends rounds on its own thread; forward those results
	// through the single writer.
	go func() {
		defer close(expireDone)
		for {
			select {
			case result := <-expired:
				select {
				case send <- outboundMessage[any]{Type: "result", Payload: result}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	session.SetExpireFunc(func(result domain.SessionResult) {
		select {
		case expired <- result:
		default:
		}
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if len(inbound.Payload) > 0 {
				_ = json.Unmarshal(inbound.Payload, &payload)
			}
			q, err := session.Start(r.Context(), payload.Level)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: q}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(errors.New("invalid answer payload"))
				continue
			}
			out, err := session.SubmitAnswer(r.Context(), domain.Label(payload.Label))
			if errors.Is(err, domain.ErrAnswerInFlight) {
				// Rapid double-tap; the duplicate is dropped silently.
				continue
			}
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID: out.QuestionID,
				Label:      string(out.Submitted),
				Correct:    out.Correct,
				Awarded:    out.Awarded,
				Combo:      out.Combo,
				Score:      out.Score,
				Recorded:   out.Recorded,
			}}
			if out.Next != nil {
				send <- outboundMessage[any]{Type: "question", Payload: *out.Next}
			}
			if out.Finished != nil {
				send <- outboundMessage[any]{Type: "result", Payload: *out.Finished}
			}
		case "stop":
			result, err := session.Stop()
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: result}
		case "ranking":
			var payload rankingPayload
			if len(inbound.Payload) > 0 {
				_ = json.Unmarshal(inbound.Payload, &payload)
			}
			reply, err := h.buildRanking(r.Context(), payload.WeekID, userID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "ranking", Payload: reply}
		default:
			send <- errMsg(errors.New("unsupported message type"))
		}
	}

	close(closeSignals)
	<-expireDone
	close(send)
	<-writerDone
}

func (h *WSHandler) buildRanking(ctx context.Context, weekID, userID string) (rankingReply, error) {
	weeks, err := h.service.WeekOptions(ctx)
	if err != nil {
		return rankingReply{}, err
	}
	if weekID == "" {
		weekID = h.service.CurrentWeekID()
	}
	weeklyTop, err := h.service.WeeklyTop(ctx, weekID, h.topN)
	if err != nil {
		return rankingReply{}, err
	}
	totalTop, err := h.service.TotalTop(ctx, h.topN)
	if err != nil {
		return rankingReply{}, err
	}
	myRank, err := h.service.MyWeeklyRank(ctx, weekID, userID)
	if err != nil {
		return rankingReply{}, err
	}
	return rankingReply{
		WeekID:    weekID,
		Weeks:     weeks,
		WeeklyTop: weeklyTop,
		TotalTop:  totalTop,
		MyRank:    myRank,
	}, nil
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
