// rpc/rpc.go
package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/models"
	"github.com/wfunc/matchserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the
// caller via net/rpc before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// ScoreQuery exposes the aggregate score table over net/rpc for contest
// tooling that does not speak the game protocol.
type ScoreQuery struct {
	scores *services.ScoreService
}

func NewScoreQuery(scores *services.ScoreService) *ScoreQuery {
	return &ScoreQuery{scores: scores}
}

type GetScoreArgs struct {
	DisplayName string
}

type GetScoreReply struct {
	Score models.AggregateScore
}

func (q *ScoreQuery) GetScore(args *GetScoreArgs, reply *GetScoreReply) error {
	score, err := q.scores.PlayerScore(args.DisplayName)
	if err != nil {
		return err
	}
	reply.Score = score
	return nil
}

type TopScoresArgs struct {
	Limit int
}

type TopScoresReply struct {
	Scores []models.AggregateScore
}

func (q *ScoreQuery) TopScores(args *TopScoresArgs, reply *TopScoresReply) error {
	scores, err := q.scores.TopScores(args.Limit)
	if err != nil {
		return err
	}
	reply.Scores = scores
	return nil
}
