package graphql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"
	gqlhandler "github.com/graphql-go/handler"
	"github.com/nbekov/account-service/internal/domain"
)

// authUsecaser is the subset of AuthUsecase the GraphQL resolvers need.
type authUsecaser interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

type authData struct {
	User  *domain.User
	Token string
}

type resolver struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

// NewHandler builds the GraphQL schema and returns an HTTP handler
// serving it (with GraphiQL on GET).
func NewHandler(authUsecase authUsecaser, logger *slog.Logger) (http.Handler, error) {
	r := &resolver{
		authUsecase: authUsecase,
		logger:      logger.With("component", "graphql"),
	}

	schema, err := newSchema(r)
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	return gqlhandler.New(&gqlhandler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: true,
	}), nil
}

func newSchema(r *resolver) (graphql.Schema, error) {
	// The password hash is deliberately absent from the User type; it
	// never leaves the service on any transport.
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"_id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.User).ID, nil
				},
			},
			"email": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.User).Email, nil
				},
			},
			"username": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.User).Username, nil
				},
			},
		},
	})

	authDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthData",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*authData).User, nil
				},
			},
			"token": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*authData).Token, nil
				},
			},
		},
	})

	userInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"username": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"pass":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"login": &graphql.Field{
				Type: graphql.NewNonNull(authDataType),
				Args: graphql.FieldConfigArgument{
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"pass":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.login,
			},
			"hello": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "Hello world!", nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootMutation",
		Fields: graphql.Fields{
			"createUser": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"userInput": &graphql.ArgumentConfig{Type: userInputType},
				},
				Resolve: r.createUser,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func (r *resolver) createUser(p graphql.ResolveParams) (interface{}, error) {
	input, ok := p.Args["userInput"].(map[string]interface{})
	if !ok {
		return nil, &apiError{message: "invalid input", status: http.StatusUnprocessableEntity}
	}
	username, _ := input["username"].(string)
	email, _ := input["email"].(string)
	pass, _ := input["pass"].(string)

	user, err := r.authUsecase.Register(p.Context, username, email, pass)
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			return nil, &apiError{message: "invalid input", status: http.StatusUnprocessableEntity, data: ve.Fields}
		case errors.Is(err, domain.ErrDuplicateUser):
			return nil, &apiError{message: "user already exists", status: http.StatusConflict}
		default:
			r.logger.Error("create user", "error", err)
			return nil, &apiError{message: "internal server error", status: http.StatusInternalServerError}
		}
	}
	return user, nil
}

func (r *resolver) login(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	pass, _ := p.Args["pass"].(string)

	token, user, err := r.authUsecase.Login(p.Context, email, pass)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, &apiError{message: "user does not exist", status: http.StatusUnauthorized}
		case errors.Is(err, domain.ErrInvalidCredentials):
			return nil, &apiError{message: "invalid password", status: http.StatusUnauthorized}
		default:
			r.logger.Error("login", "error", err)
			return nil, &apiError{message: "internal server error", status: http.StatusInternalServerError}
		}
	}
	return &authData{User: user, Token: token}, nil
}
