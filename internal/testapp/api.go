package testapp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type sessionResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// signupHandler handles POST /users
func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "User validation failed: firstName, lastName, email and password are required"})
		return
	}

	if _, err := s.store.AddUser(req.FirstName, req.LastName, req.Email, req.Password); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "Email address is already in use"})
		return
	}
	user, token, err := s.store.Login(req.Email, req.Password)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info().Str("email", user.Email).Msg("User signed up")
	WriteJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

// loginHandler handles POST /users/login. Any failure is a bare 401.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	user, token, err := s.store.Login(req.Email, req.Password)
	if err != nil {
		s.logger.Debug().Str("email", req.Email).Msg("Login rejected")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	WriteJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

// logoutHandler handles POST /users/logout
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey).(string)
	s.store.Logout(token)
	w.WriteHeader(http.StatusOK)
}

// meHandler handles GET /users/me
func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, currentUser(r))
}

// listContactsHandler handles GET /contacts
func (s *Server) listContactsHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.store.List(currentUser(r).ID))
}

// createContactHandler handles POST /contacts
func (s *Server) createContactHandler(w http.ResponseWriter, r *http.Request) {
	s.saveContact(w, r, "")
}

// updateContactHandler handles PUT /contacts/{id}
func (s *Server) updateContactHandler(w http.ResponseWriter, r *http.Request) {
	s.saveContact(w, r, chi.URLParam(r, "id"))
}

func (s *Server) saveContact(w http.ResponseWriter, r *http.Request, id string) {
	var c Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := s.store.Save(currentUser(r).ID, id, c)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			WriteValidationError(w, verr)
		case errors.Is(err, ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
		default:
			WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	s.logger.Debug().Str("id", saved.ID).Str("email", saved.Email).Msg("Contact saved")
	WriteJSON(w, status, saved)
}

// getContactHandler handles GET /contacts/{id}
func (s *Server) getContactHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Get(currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

// deleteContactHandler handles DELETE /contacts/{id}
func (s *Server) deleteContactHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(currentUser(r).ID, id); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.logger.Debug().Str("id", id).Msg("Contact deleted")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Contact deleted"))
}
