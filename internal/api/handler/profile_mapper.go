package handler

import (
	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
)

// --- Request → Service input ---

func toEmbeddingSet(rows [][]float32) domain.EmbeddingSet {
	set := make(domain.EmbeddingSet, len(rows))
	for i, r := range rows {
		set[i] = domain.Vector(r)
	}
	return set
}

func toSignupInput(req signupRequest) ports.SignupInput {
	return ports.SignupInput{
		Email:       req.Email,
		Handle:      req.Handle,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		StatusText:  req.StatusText,
		BioText:     req.BioText,
		Location:    req.Location,
		Embeddings:  toEmbeddingSet(req.FaceVectors),
	}
}

func toExternalSignupInput(req externalSignupRequest) ports.ExternalSignupInput {
	return ports.ExternalSignupInput{
		Assertion:  req.Assertion,
		Handle:     req.Handle,
		StatusText: req.StatusText,
		BioText:    req.BioText,
		Location:   req.Location,
		Embeddings: toEmbeddingSet(req.FaceVectors),
	}
}

func toProfilePatch(req updateProfileRequest) domain.ProfilePatch {
	return domain.ProfilePatch{
		DisplayName: req.DisplayName,
		StatusText:  req.StatusText,
		BioText:     req.BioText,
		Location:    req.Location,
	}
}

// --- Service result → HTTP response ---

func toProfileResponse(p *domain.PublicProfile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		Email:       p.Email,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		StatusText:  p.StatusText,
		BioText:     p.BioText,
		Location:    p.Location,
		Link:        p.Link,
	}
}

func toVectorMatchResponse(m *domain.VectorMatch) vectorMatchResponse {
	return vectorMatchResponse{
		profileResponse: toProfileResponse(m.Profile),
		Score:           m.Score,
	}
}

func bearer(token string) tokenResponse {
	return tokenResponse{AccessToken: token, TokenType: "bearer"}
}
