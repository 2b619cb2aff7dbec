package inmemory

import (
	"sync"

	"github.com/watchroom/server/internal/repository/connection"
	"github.com/watchroom/server/pkg/wsconn"
)

type repo struct {
	mu       sync.RWMutex
	connList map[*wsconn.Conn]string
	userList map[string]*wsconn.Conn
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*wsconn.Conn]string),
		userList: make(map[string]*wsconn.Conn),
	}
}

func (r *repo) Add(conn *wsconn.Conn, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" || r.userList[userID] != nil {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = userID
	r.userList[userID] = conn

	return nil
}

func (r *repo) RemoveByConn(conn *wsconn.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.userList, userID)

	return userID, nil
}

func (r *repo) RemoveByUserID(userID string) (*wsconn.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.userList[userID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.userList, userID)

	return conn, nil
}

func (r *repo) GetConn(userID string) (*wsconn.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.userList[userID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetUserID(conn *wsconn.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return userID, nil
}
