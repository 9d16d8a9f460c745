package models

import "time"

// Channel is a podcast channel owned by exactly one user.
type Channel struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Name      string    `db:"name" json:"name"`
	Topic     string    `db:"topic" json:"topic"`
	NewsURL   string    `db:"news_url" json:"news_url"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PublicChannel is the subset of a channel returned after creation.
type PublicChannel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Topic   string `json:"topic"`
	NewsURL string `json:"news_url"`
}

func (c Channel) Public() PublicChannel {
	return PublicChannel{ID: c.ID, Name: c.Name, Topic: c.Topic, NewsURL: c.NewsURL}
}
