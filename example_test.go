package sessionless_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/MrEthical07/sessionless"
)

type User struct {
	ID   string
	Name string
}

var users = map[string]User{"42": {ID: "42", Name: "Ada"}}

func ExampleNew() {
	auth, err := sessionless.New(sessionless.Options[User]{
		Secret: []byte("change-me-change-me-change-me-32"),
		SerializeUser: func(_ context.Context, u User) (string, error) {
			return u.ID, nil
		},
		DeserializeUser: func(_ *http.Request, id string) (User, error) {
			u, ok := users[id]
			if !ok {
				return User{}, sessionless.ErrUserNotFound
			}
			return u, nil
		},
		VerificationPolicy: sessionless.SuppressVerificationErrors(),
	})
	if err != nil {
		panic(err)
	}

	hello := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := sessionless.UserFromContext[User](r.Context()); ok {
			fmt.Println("hello,", u.Name)
			return
		}
		fmt.Println("hello, stranger")
	}))

	token, _ := auth.Sign(context.Background(), users["42"])

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	hello.ServeHTTP(httptest.NewRecorder(), req)

	req.Header.Set("Authorization", "Bearer "+token)
	hello.ServeHTTP(httptest.NewRecorder(), req)

	// Output:
	// hello, stranger
	// hello, Ada
}

func ExampleParseTokenLookup() {
	extract, err := sessionless.ParseTokenLookup("query:token,cookie:jwt")
	if err != nil {
		panic(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/?token=abc", nil)
	fmt.Println(extract(req))
	// Output: abc
}
