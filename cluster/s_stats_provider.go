package cluster

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type statsSourceServer struct {
	member *MemberNode
}

// createStatsSource creates a new stats Source server
func createStatsSource(member *MemberNode) *statsSourceServer {
	return &statsSourceServer{member: member}
}

// ProvideStatistics reports the round statistics tracked by the Member, along
// with its node id. Rounds are only reported once TrackStatistics has been called.
func (s *statsSourceServer) ProvideStatistics(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if tracker := s.member.statistics(); tracker != nil {
		var err error
		if msg, err = tracker.ToMessage(); err != nil {
			return nil, err
		}
	}
	msg.Fields["nodeId"] = structpb.NewNumberValue(float64(s.member.NodeID()))
	return msg, nil
}
